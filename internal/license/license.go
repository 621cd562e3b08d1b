// Package license renders the LICENSE file of a generated package.
package license

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/git-pkgs/typespub/internal/core"
)

const (
	// LineBudget is the column limit for packed copyright lines.
	LineBudget = 80

	indent = "    "

	// closingPhrase opens the MIT permission paragraph and is always packed
	// on its own line after the names.
	closingPhrase = "Permission is hereby granted, free of charge, to any person obtaining a"
)

// Text returns the license body for kind, crediting contributors with the
// year taken from now.
func Text(kind core.License, contributors []core.Contributor, now time.Time) (string, error) {
	names := make([]string, len(contributors))
	for i, c := range contributors {
		names[i] = c.Name
	}
	year := now.Year()

	switch kind {
	case core.MIT:
		block := strings.Join(PackCopyright(year, names), "\n"+indent)
		return fmt.Sprintf(mitTemplate, block), nil
	case core.Apache20:
		line := strings.TrimSpace(fmt.Sprintf("Copyright %d %s", year, strings.Join(names, ", ")))
		return fmt.Sprintf(apacheTemplate, line), nil
	default:
		return "", fmt.Errorf("%w: %q", core.ErrUnknownLicense, string(kind))
	}
}

// PackCopyright greedily packs the copyright tokens into lines of at most
// LineBudget columns, counting the indentation each line is written with.
func PackCopyright(year int, names []string) []string {
	tokens := copyrightTokens(year, names)

	var lines [][]string
	var line []string
	sum := len(indent)
	closeLine := func() {
		lines = append(lines, line)
		line = nil
		sum = len(indent)
	}

	for i := 0; i < len(tokens); {
		tok := tokens[i]
		width := utf8.RuneCountInString(tok)
		n := len(line)

		switch {
		case sum+width+n+1 < LineBudget:
			line = append(line, tok)
			sum += width
			i++
		case sum+width+n < LineBudget:
			line = append(line, tok)
			i++
			closeLine()
		case n == 0:
			// A single token wider than the budget gets a line to itself.
			line = append(line, tok)
			i++
			closeLine()
		default:
			closeLine()
		}
	}
	if len(line) > 0 {
		lines = append(lines, line)
	}

	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = strings.Join(l, " ")
	}
	return out
}

func copyrightTokens(year int, names []string) []string {
	tokens := make([]string, 0, len(names)+2)
	if len(names) == 0 {
		tokens = append(tokens, "Copyright "+strconv.Itoa(year)+".")
		return append(tokens, closingPhrase)
	}
	tokens = append(tokens, "Copyright "+strconv.Itoa(year))
	for i, name := range names {
		if i == len(names)-1 {
			tokens = append(tokens, name+".")
		} else {
			tokens = append(tokens, name+",")
		}
	}
	return append(tokens, closingPhrase)
}

const mitTemplate = `    MIT License

    %s
    copy of this software and associated documentation files (the "Software"), to
    deal in the Software without restriction, including without limitation the
    rights to use, copy, modify, merge, publish, distribute, sublicense, and/or
    sell copies of the Software, and to permit persons to whom the Software is
    furnished to do so, subject to the following conditions:

    The above copyright notice and this permission notice shall be included in
    all copies or substantial portions of the Software.

    THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
    IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
    FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
    AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
    LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
    OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
    SOFTWARE
`

const apacheTemplate = `%s

Licensed under the Apache License, Version 2.0 (the "License"); you may not
use this file except in compliance with the License. You may obtain a copy of
the License at http://www.apache.org/licenses/LICENSE-2.0

THIS CODE IS PROVIDED ON AN *AS IS* BASIS, WITHOUT WARRANTIES OR CONDITIONS OF
ANY KIND, EITHER EXPRESS OR IMPLIED, INCLUDING WITHOUT LIMITATION ANY IMPLIED
WARRANTIES OR CONDITIONS OF TITLE, FITNESS FOR A PARTICULAR PURPOSE,
MERCHANTABLITY OR NON-INFRINGEMENT.

See the Apache Version 2.0 License for specific language governing permissions
and limitations under the License.
`
