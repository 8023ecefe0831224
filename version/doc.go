// Package version reports the build version of redis-manager binaries.
//
// Tagged module builds report their module version. Release builds may
// override it and add git details via -ldflags:
//
//	go build -ldflags "-X github.com/lightdream/redismanager/version.Version=1.15.4"
package version
