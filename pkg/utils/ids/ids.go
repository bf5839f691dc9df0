/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package ids

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"strings"
	"time"

	"github.com/mr-tron/base58"
)

const jobIdLength = 6

// GenerateJobId returns a short lowercase base58 identifier derived from the
// current time and random bytes. Collisions across a deployment are unlikely
// but not impossible; callers insert with a uniqueness constraint.
func GenerateJobId() string {
	return generateJobIdAt(time.Now().UnixNano())
}

func generateJobIdAt(nanos int64) string {
	seed := make([]byte, 12)
	binary.BigEndian.PutUint64(seed, uint64(nanos))
	// Random suffix keeps ids distinct for jobs created in the same tick.
	if _, err := rand.Read(seed[8:]); err != nil {
		binary.BigEndian.PutUint32(seed[8:], uint32(nanos))
	}
	sum := sha256.Sum256(seed)
	encoded := base58.Encode(sum[:4])
	encoded = strings.ToLower(encoded)
	if len(encoded) > jobIdLength {
		encoded = encoded[:jobIdLength]
	}
	return encoded
}
