package moderation

import (
	"bufio"
	"os"
	"strings"

	"convo/errors"
)

// LoadWords reads one censored word per line from path. Blank lines
// and '#' comments are skipped, duplicates collapsed.
func LoadWords(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	unique := make(map[string]struct{})
	var words []string

	// A scanner handles both \n and \r\n endings correctly.
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, seen := unique[line]; seen {
			continue
		}
		unique[line] = struct{}{}
		words = append(words, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(words) == 0 {
		return nil, errors.ErrEmptyWords
	}
	return words, nil
}
