/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package gpu

import "context"

// mockLister serves a fixed two-GPU table for development machines without
// GPUs.
type mockLister struct{}

func (m *mockLister) ListDevices(_ context.Context) ([]Device, error) {
	return []Device{
		{Index: 0, Name: "Mock GPU", MemoryTotal: 8192, MemoryUsed: 1},
		{Index: 1, Name: "Mock GPU", MemoryTotal: 8192, MemoryUsed: 1},
	}, nil
}
