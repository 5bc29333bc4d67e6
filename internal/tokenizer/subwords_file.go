package tokenizer

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

const (
	subwordsHeader  = "### SubwordTextEncoder"
	metadataPrefix  = "### Metadata: "
	subwordsFileExt = ".subwords"
	maxSubwordsLine = 1 << 20
)

// LoadSubwords reads a .subwords vocabulary file.
func LoadSubwords(path string) (*Subword, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, loadError(path, err)
	}
	defer func() { _ = f.Close() }()

	tok, err := ReadSubwords(f)
	if err != nil {
		return nil, loadError(path, err)
	}
	return tok, nil
}

// ReadSubwords parses the vocabulary format: a header line, a metadata line
// holding a JSON object, then one single-quoted subword per line.
func ReadSubwords(r io.Reader) (*Subword, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxSubwordsLine)

	var lines []string
	for sc.Scan() {
		lines = append(lines, strings.TrimSuffix(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "read subwords")
	}
	if len(lines) < 2 {
		return nil, errors.New("subwords file is truncated")
	}
	if lines[0] != subwordsHeader {
		return nil, errors.Errorf("unexpected header %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], metadataPrefix) {
		return nil, errors.Errorf("missing metadata line, got %q", lines[1])
	}
	var metadata map[string]any
	if err := json.Unmarshal([]byte(strings.TrimPrefix(lines[1], metadataPrefix)), &metadata); err != nil {
		return nil, errors.Wrap(err, "parse metadata")
	}

	subwords := make([]string, 0, len(lines)-2)
	for i, line := range lines[2:] {
		if len(line) < 2 || line[0] != '\'' || line[len(line)-1] != '\'' {
			return nil, errors.Errorf("line %d: subword must be single-quoted, got %q", i+3, line)
		}
		subwords = append(subwords, line[1:len(line)-1])
	}
	if len(subwords) == 0 {
		return nil, errors.New("vocabulary has no subwords")
	}

	tok, err := NewSubword(subwords)
	if err != nil {
		return nil, err
	}
	tok.metadata = metadata
	return tok, nil
}

// WriteSubwords writes subwords in the format ReadSubwords accepts.
func WriteSubwords(w io.Writer, subwords []string, metadata map[string]any) error {
	if metadata == nil {
		metadata = map[string]any{}
	}
	meta, err := json.Marshal(metadata)
	if err != nil {
		return errors.Wrap(err, "encode metadata")
	}
	bw := bufio.NewWriter(w)
	_, _ = bw.WriteString(subwordsHeader + "\n")
	_, _ = bw.WriteString(metadataPrefix + string(meta) + "\n")
	for _, s := range subwords {
		if strings.ContainsAny(s, "\r\n") {
			return errors.Errorf("subword %q contains a line break", s)
		}
		_, _ = bw.WriteString("'" + s + "'\n")
	}
	return bw.Flush()
}

// SaveSubwords writes the vocabulary of tok to path.
func SaveSubwords(path string, tok *Subword) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if err := WriteSubwords(f, tok.subwords, tok.metadata); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
