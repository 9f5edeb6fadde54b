/*
 * source.go, part of molview.
 *
 * Copyright 2024 Raul Mera <rauldotmeraatusachdotcl>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

package rawtraj

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/rmera/molview"
)

//compression formats, chosen from the file extension.
const (
	plain = iota
	zstdFormat
	gzipFormat
)

func formatFromName(name string) int {
	l := strings.ToLower(name)
	switch {
	case strings.HasSuffix(l, ".zst"), strings.HasSuffix(l, ".zstd"):
		return zstdFormat
	case strings.HasSuffix(l, ".gz"):
		return gzipFormat
	default:
		return plain
	}
}

//source gives random access to the bytes of a, possibly compressed, file.
type source struct {
	io.ReaderAt
	size   int64
	closer io.Closer
}

func (s *source) Close() error {
	if s.closer == nil {
		return nil
	}
	err := s.closer.Close()
	s.closer = nil
	return err
}

//openSource opens the file name. Plain files are read directly from disk. Compressed
//files are decompressed into memory. If the file doesn't exist, a
//MissingFileError naming role is returned.
func openSource(name, role string) (*source, error) {
	f, err := os.Open(name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, molview.NewMissingFileError(name, role)
		}
		return nil, err
	}
	format := formatFromName(name)
	if format == plain {
		info, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, err
		}
		return &source{ReaderAt: f, size: info.Size(), closer: f}, nil
	}
	defer f.Close()
	var data []byte
	r := bufio.NewReader(f)
	switch format {
	case zstdFormat:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, molview.NewCorruptFrameError(name, -1, "can't start zstd decoder: "+err.Error()).SetCritical()
		}
		data, err = io.ReadAll(dec)
		dec.Close()
		if err != nil {
			return nil, molview.NewCorruptFrameError(name, -1, "can't decompress: "+err.Error()).SetCritical()
		}
	case gzipFormat:
		dec, err := gzip.NewReader(r)
		if err != nil {
			return nil, molview.NewCorruptFrameError(name, -1, "can't start gzip decoder: "+err.Error()).SetCritical()
		}
		data, err = io.ReadAll(dec)
		dec.Close()
		if err != nil {
			return nil, molview.NewCorruptFrameError(name, -1, "can't decompress: "+err.Error()).SetCritical()
		}
	}
	return &source{ReaderAt: bytes.NewReader(data), size: int64(len(data))}, nil
}

//sink writes to a file, compressing if the name says so.
type sink struct {
	f   *os.File
	buf *bufio.Writer
	w   io.Writer
	enc io.WriteCloser //nil for plain files
}

func createSink(name string) (*sink, error) {
	f, err := os.Create(name)
	if err != nil {
		return nil, err
	}
	S := &sink{f: f, buf: bufio.NewWriter(f)}
	switch formatFromName(name) {
	case zstdFormat:
		enc, err := zstd.NewWriter(S.buf)
		if err != nil {
			f.Close()
			return nil, err
		}
		S.enc = enc
		S.w = enc
	case gzipFormat:
		S.enc = gzip.NewWriter(S.buf)
		S.w = S.enc
	default:
		S.w = S.buf
	}
	return S, nil
}

func (S *sink) Write(p []byte) (int, error) { return S.w.Write(p) }

func (S *sink) Close() error {
	if S.enc != nil {
		if err := S.enc.Close(); err != nil {
			S.f.Close()
			return err
		}
	}
	if err := S.buf.Flush(); err != nil {
		S.f.Close()
		return err
	}
	return S.f.Close()
}
