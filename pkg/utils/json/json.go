/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package json

import (
	"bytes"
	"encoding/json"
)

// Unmarshal parses the JSON-encoded data and stores the result in the value pointed to by v.
func Unmarshal(data []byte, v interface{}) error {
	d := json.NewDecoder(bytes.NewReader(data))
	if err := d.Decode(v); err != nil {
		return err
	}
	return nil
}

// MarshalSilently converts the given value to its JSON representation.
// Marshal failures yield nil rather than an error; callers use this for
// logging and persistence of best-effort payloads.
func MarshalSilently(v interface{}) []byte {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}

// UnmarshalMapSilently decodes a JSON object into a string map.
// Empty or malformed input yields an empty map.
func UnmarshalMapSilently(data string) map[string]string {
	result := make(map[string]string)
	if data == "" {
		return result
	}
	if err := Unmarshal([]byte(data), &result); err != nil {
		return map[string]string{}
	}
	return result
}
