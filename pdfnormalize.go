package mdexport

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"regexp"
)

// Chrome stamps every PDF with the print time and a random file identifier.
// normalizePDF rewrites both in place so identical input prints identical
// bytes. Replacements keep the original length, so xref offsets stay valid.
var (
	pdfDateRe = regexp.MustCompile(`/(?:CreationDate|ModDate)\s*\(([^)]*)\)`)
	pdfIDRe   = regexp.MustCompile(`/ID\s*\[\s*<([0-9A-Fa-f]*)>\s*<([0-9A-Fa-f]*)>\s*\]`)
)

// epochDigits are the digits of 1980-01-01T00:00:00, the DOCX zip epoch.
const epochDigits = "19800101000000"

func normalizePDF(data []byte) []byte {
	out := bytes.Clone(data)

	for _, m := range pdfDateRe.FindAllSubmatchIndex(out, -1) {
		k := 0
		for i := m[2]; i < m[3]; i++ {
			if out[i] < '0' || out[i] > '9' {
				continue
			}
			if k < len(epochDigits) {
				out[i] = epochDigits[k]
			} else {
				out[i] = '0'
			}
			k++
		}
	}

	ids := pdfIDRe.FindAllSubmatchIndex(out, -1)
	if len(ids) == 0 {
		return out
	}
	for _, m := range ids {
		for g := 1; g <= 2; g++ {
			fill(out[m[2*g]:m[2*g+1]], '0')
		}
	}
	sum := sha256.Sum256(out)
	digest := []byte(hex.EncodeToString(sum[:]))
	for _, m := range ids {
		for g := 1; g <= 2; g++ {
			field := out[m[2*g]:m[2*g+1]]
			for i := range field {
				field[i] = digest[i%len(digest)]
			}
		}
	}
	return out
}

func fill(b []byte, c byte) {
	for i := range b {
		b[i] = c
	}
}
