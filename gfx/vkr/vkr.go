// Copyright (c) 2024 berylllium
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package vkr is the Vulkan implementation of the renderer and the
// resource builders it draws with.
package vkr

func safeString(s string) string {
	return s + "\x00"
}

func safeStrings(list []string) []string {
	safe := make([]string, len(list))
	for idx, s := range list {
		safe[idx] = s + "\x00"
	}
	return safe
}
