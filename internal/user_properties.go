// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package internal

import "github.com/eclipse/paho.golang/paho"

// MapToUserProperties converts a plain map into the User Property list format
// used by MQTT v5 packets. Iteration order is not significant to the
// protocol, but callers that need deterministic wire output should not rely
// on map ordering being stable across calls.
func MapToUserProperties(m map[string]string) paho.UserProperties {
	if len(m) == 0 {
		return nil
	}
	props := make(paho.UserProperties, 0, len(m))
	for k, v := range m {
		props = append(props, paho.UserProperty{Key: k, Value: v})
	}
	return props
}

// UserPropertiesToMap converts a wire-format User Property list into a plain
// map. Duplicate keys keep the last value encountered.
func UserPropertiesToMap(props paho.UserProperties) map[string]string {
	if len(props) == 0 {
		return nil
	}
	m := make(map[string]string, len(props))
	for _, p := range props {
		m[p.Key] = p.Value
	}
	return m
}
