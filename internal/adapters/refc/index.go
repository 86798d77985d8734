package refc

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/zerr"
)

// ABIExt is the extension of a module's published ABI index.
const ABIExt = ".kabi"

// symbolIndex maps a symbol name to its published signatures.
type symbolIndex map[string][]string

// loadIndex reads the ABI indexes of every classpath entry. A name defined by
// an earlier entry shadows later ones. Missing entries are skipped.
func loadIndex(classpath []string) (symbolIndex, error) {
	index := make(symbolIndex)
	for _, entry := range classpath {
		files, err := os.ReadDir(entry)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, zerr.With(zerr.Wrap(err, "failed to read classpath entry"), "entry", entry)
		}

		local := make(symbolIndex)
		for _, f := range files {
			if f.IsDir() || filepath.Ext(f.Name()) != ABIExt {
				continue
			}
			path := filepath.Join(entry, f.Name())
			data, err := os.ReadFile(path) //nolint:gosec // classpath entries are module output directories
			if err != nil {
				return nil, zerr.With(zerr.Wrap(err, "failed to read ABI index"), "path", path)
			}
			if err := parseIndex(data, local); err != nil {
				return nil, zerr.With(err, "path", path)
			}
		}
		for name, sigs := range local {
			if _, shadowed := index[name]; !shadowed {
				index[name] = sigs
			}
		}
	}
	return index, nil
}

func parseIndex(data []byte, into symbolIndex) error {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		name, sig, ok := strings.Cut(line, "\t")
		if !ok {
			return zerr.With(zerr.New("malformed ABI index line"), "line", line)
		}
		into[name] = append(into[name], sig)
	}
	return scanner.Err()
}

// renderIndex produces the sorted ABI index for a set of declarations.
func renderIndex(decls []Decl) []byte {
	lines := make([]string, 0, len(decls))
	for _, d := range decls {
		if d.Private {
			continue
		}
		lines = append(lines, d.Name+"\t"+d.Signature)
	}
	slices.Sort(lines)
	lines = slices.Compact(lines)

	var buf bytes.Buffer
	for _, l := range lines {
		buf.WriteString(l)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

func hashBytes(b []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(b))
}

// writeIndex publishes a module's ABI into its output directory and returns its hash.
func writeIndex(outputDir, module string, decls []Decl) (string, error) {
	data := renderIndex(decls)
	path := filepath.Join(outputDir, module+ABIExt)
	if err := os.WriteFile(path, data, domain.FilePerm); err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to write ABI index"), "path", path)
	}
	return hashBytes(data), nil
}
