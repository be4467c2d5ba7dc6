package flatdb

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/klauspost/pgzip"
)

// IsCompressed reports whether a database path is stored gzip-compressed.
func IsCompressed(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".gz")
}

// output is a buffered database writer, gzip-compressed for .gz paths.
type output struct {
	file *os.File
	gz   *pgzip.Writer
	buf  *bufio.Writer
}

func createOutput(path string) (*output, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %s - %w", path, err)
	}
	out := &output{file: f}
	if IsCompressed(path) {
		out.gz = pgzip.NewWriter(f)
		out.buf = bufio.NewWriter(out.gz)
	} else {
		out.buf = bufio.NewWriter(f)
	}
	return out, nil
}

func (o *output) WriteString(s string) (int, error) {
	return o.buf.WriteString(s)
}

func (o *output) Close() error {
	errs := []error{o.buf.Flush()}
	if o.gz != nil {
		errs = append(errs, o.gz.Close())
	}
	errs = append(errs, o.file.Close())
	return errors.Join(errs...)
}

// input reads a database, decompressing .gz paths.
type input struct {
	file *os.File
	gz   *pgzip.Reader
	*bufio.Reader
}

func openInput(path string) (*input, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("failed to open database: %s - %w", path, err)
	}
	in := &input{file: f}
	if IsCompressed(path) {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to read compressed database: %s - %w", path, err)
		}
		in.gz = gz
		in.Reader = bufio.NewReaderSize(gz, 64*1024)
	} else {
		in.Reader = bufio.NewReaderSize(f, 64*1024)
	}
	return in, nil
}

func (in *input) Close() error {
	if in.gz != nil {
		in.gz.Close()
	}
	return in.file.Close()
}

// eachLine calls fn with every line of r including its newline, if any.
func eachLine(r *bufio.Reader, fn func(line string) error) error {
	for {
		line, err := r.ReadString('\n')
		if line != "" {
			if ferr := fn(line); ferr != nil {
				return ferr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// trimNewline strips one trailing "\n" or "\r\n".
func trimNewline(line string) string {
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r")
}

// ReadLines loads a whole database into memory.
func ReadLines(path string) ([]string, error) {
	in, err := openInput(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	var lines []string
	err = eachLine(in.Reader, func(line string) error {
		lines = append(lines, trimNewline(line))
		return nil
	})
	return lines, err
}
