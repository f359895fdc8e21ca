package vision

import (
	"bufio"
	"os"
)

// LoadLabels reads a newline-delimited class label file.
func LoadLabels(filename string) ([]string, error) {
	labels := []string{}
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		labels = append(labels, scanner.Text())
	}
	return labels, scanner.Err()
}

// Label resolves a class id to its name, falling back to "unknown" when the
// labels file is short or absent.
func Label(labels []string, class int) string {
	if class >= 0 && class < len(labels) {
		return labels[class]
	}
	return "unknown"
}
