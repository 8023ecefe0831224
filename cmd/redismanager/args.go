package main

import (
	"encoding/json"
	"strings"

	"github.com/lightdream/redismanager/validation"
)

// checkTarget rejects blank targets and full addresses. Targets are node
// ids, or "*" for every node.
func checkTarget(v *validation.Validator, target string) *validation.Validator {
	return v.Required("target", target).
		Custom(!strings.Contains(target, "#"), "target", "must be a node id, not a full address")
}

func validateTarget(target string) error {
	if appErr := checkTarget(validation.New(), target).Validate(); appErr != nil {
		return appErr
	}
	return nil
}

func validateSendArgs(target, eventType string, payload []string) error {
	v := checkTarget(validation.New(), target).Required("type", eventType)
	if len(payload) > 0 {
		v.Custom(json.Valid([]byte(payload[0])), "json", "payload is not valid JSON")
	}
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}
