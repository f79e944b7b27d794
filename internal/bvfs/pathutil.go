// Copyright 2024 BVFS Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package bvfs implements the backup-catalog virtual filesystem core:
// path-hierarchy caching, directory/file/version listing, and
// restore-list compilation over a catalog.Session.
package bvfs

import "strings"

// Parent returns the parent directory of path, always ending in "/" (or
// "" for the root / for a Windows drive root). path is expected in the
// catalog's convention: directory paths end in "/", and an empty string
// denotes the root.
//
// The Windows drive-root case is load-bearing: "C:/" has no parent, even
// though it "looks like" it ends in a separator after a 2-character
// prefix, because it IS the root of that drive.
func Parent(path string) string {
	if isWindowsDriveRoot(path) {
		return ""
	}

	s := path
	if n := len(s); n > 0 && s[n-1] == '/' {
		s = s[:n-1]
	}

	idx := strings.LastIndexByte(s, '/')
	if idx < 0 {
		return ""
	}
	return s[:idx+1]
}

// Basename returns the last path component of path, with any trailing
// "/" elided. The root returns "".
func Basename(path string) string {
	s := strings.TrimSuffix(path, "/")
	idx := strings.LastIndexByte(s, '/')
	return s[idx+1:]
}

func isWindowsDriveRoot(path string) bool {
	return len(path) == 3 && isASCIIAlpha(path[0]) && path[1] == ':' && path[2] == '/'
}

func isASCIIAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
