// Package testutil holds test helpers shared by the redis-manager packages:
// an in-memory Redis server and component lifecycles bound to a test.
//
//	func TestPing(t *testing.T) {
//		mini := testutil.Redis(t)
//		p, _ := platform.New(cfgFor(mini.Addr()), nil)
//		testutil.T(t).Start(p)
//	}
package testutil
