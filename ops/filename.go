// Copyright 2025 AxonFlow
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

package ops

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// MaxFilenameLength is the longest name CleanFilename returns.
const MaxFilenameLength = 255

const filenameSymbols = "~-_.() "

// CleanFilename turns an arbitrary string, typically an object prefix,
// into a name that is valid on any common filesystem. Characters are
// decomposed (NFKD) so accented letters keep their base letter; anything
// that is not an ASCII letter, digit or one of ~-_.() and space is dropped.
// Path separators are dropped too.
func CleanFilename(s string) string {
	var b strings.Builder
	for _, r := range norm.NFKD.String(s) {
		if b.Len() == MaxFilenameLength {
			break
		}
		if r >= utf8.RuneSelf {
			continue
		}
		if isAlnum(r) || strings.ContainsRune(filenameSymbols, r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
