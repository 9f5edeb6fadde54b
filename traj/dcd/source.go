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

package dcd

import (
	"bufio"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

//zstd.Decoder's Close doesn't return an error, so it needs a wrapper to be an io.ReadCloser
type zstdReadCloser struct {
	*zstd.Decoder
}

func (z zstdReadCloser) Close() error {
	z.Decoder.Close()
	return nil
}

//prepSource returns an object that will read data from the already opened file
//D.fhandle, either 'as is' or decompressing first, depending on the file extension.
//Supported extensions are .dcd (non-compressed dcd), .gz (gzip) and .zst (zstd).
//Other extensions are assumed to be plain DCD files, with a warning to the log.
func (D *DCDObj) prepSource() (io.Reader, io.Closer, error) {
	temp := strings.Split(D.filename, ".")
	fk := strings.ToLower(temp[len(temp)-1])
	reader := bufio.NewReader(D.fhandle)
	switch fk {
	case "dcd":
		return reader, nil, nil
	case "gz":
		r, err := gzip.NewReader(reader)
		if err != nil {
			return nil, nil, newError(err.Error(), D.filename, true, "gzip.NewReader", "prepSource")
		}
		return r, r, nil
	case "zst", "zstd":
		r, err := zstd.NewReader(reader)
		if err != nil {
			return nil, nil, newError(err.Error(), D.filename, true, "zstd.NewReader", "prepSource")
		}
		z := zstdReadCloser{r}
		return z, z, nil
	default:
		//if it's not a plain DCD, you'll get an error later.
		D.log.Warn().Str("file", D.filename).Str("extension", fk).Msg("extension not supported, assuming a plain DCD file")
		return reader, nil, nil
	}
}
