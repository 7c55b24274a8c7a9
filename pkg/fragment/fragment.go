// Package fragment implements the multi-part transport codec used when a
// payload is too large for a single QR frame or NFC record.
//
// A payload is split into bounded chunks, each wrapped in a self-describing
// ASCII fragment:
//
//	hc:<seq>/<total>/<checksum>/<base64url chunk>
//
// seq is 1-based, total is the full part count, and checksum is the first
// 4 bytes (8 hex chars) of the BLAKE3-256 hash of the whole payload. The
// checksum is identical across all fragments of one payload, letting a
// receiver discard strays from a different transmission and verify the
// reassembled bytes.
package fragment

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hivecuba/hivecash/pkg/crypto"
)

// Scheme is the URI-like prefix carried by every fragment.
const Scheme = "hc:"

const checksumLen = 8

// Codec errors.
var (
	ErrMalformed  = errors.New("malformed fragment")
	ErrMismatch   = errors.New("fragment belongs to a different payload")
	ErrIncomplete = errors.New("payload incomplete")
)

// payloadChecksum returns the 8-hex-char checksum of a full payload.
func payloadChecksum(payload []byte) string {
	sum := crypto.Hash(payload)
	return hex.EncodeToString(sum[:4])
}

// Encode splits payload into fragments carrying at most maxChunk bytes of
// payload each. maxChunk bounds the chunk size before base64 expansion and
// header overhead; pick it for the target frame capacity.
func Encode(payload []byte, maxChunk int) ([]string, error) {
	if len(payload) == 0 {
		return nil, errors.New("empty payload")
	}
	if maxChunk <= 0 {
		return nil, fmt.Errorf("max chunk size must be positive, got %d", maxChunk)
	}

	total := (len(payload) + maxChunk - 1) / maxChunk
	sum := payloadChecksum(payload)

	fragments := make([]string, 0, total)
	for i := 0; i < total; i++ {
		start := i * maxChunk
		end := start + maxChunk
		if end > len(payload) {
			end = len(payload)
		}
		chunk := base64.RawURLEncoding.EncodeToString(payload[start:end])
		fragments = append(fragments, fmt.Sprintf("%s%d/%d/%s/%s", Scheme, i+1, total, sum, chunk))
	}
	return fragments, nil
}

// Decoder accumulates fragments arriving in any order, possibly duplicated,
// and reconstructs the original payload once every distinct part has been
// seen. A Decoder is reusable after Reset.
type Decoder struct {
	total    int
	checksum string
	parts    map[int][]byte
}

// NewDecoder creates an empty fragment decoder.
func NewDecoder() *Decoder {
	return &Decoder{parts: make(map[int][]byte)}
}

// Receive ingests one fragment and reports whether the payload is now
// complete. Duplicates are no-ops. A fragment whose payload checksum does
// not match the transmission in progress is rejected with ErrMismatch and
// leaves the decoder state untouched.
func (d *Decoder) Receive(fragment string) (bool, error) {
	seq, total, sum, chunk, err := parse(fragment)
	if err != nil {
		return d.Complete(), err
	}

	if d.total == 0 {
		d.total = total
		d.checksum = sum
	} else if sum != d.checksum || total != d.total {
		return d.Complete(), ErrMismatch
	}

	if _, dup := d.parts[seq]; dup {
		return d.Complete(), nil
	}
	d.parts[seq] = chunk
	return d.Complete(), nil
}

// Progress returns the number of distinct parts received and the expected
// total. The total is 0 until the first fragment arrives.
func (d *Decoder) Progress() (received, total int) {
	return len(d.parts), d.total
}

// Complete reports whether every distinct part has been received.
func (d *Decoder) Complete() bool {
	return d.total > 0 && len(d.parts) == d.total
}

// Result reassembles and verifies the payload. ErrIncomplete if parts are
// still missing; ErrMismatch if the reassembled bytes fail the payload
// checksum.
func (d *Decoder) Result() ([]byte, error) {
	if !d.Complete() {
		return nil, ErrIncomplete
	}
	var payload []byte
	for i := 1; i <= d.total; i++ {
		payload = append(payload, d.parts[i]...)
	}
	if payloadChecksum(payload) != d.checksum {
		return nil, fmt.Errorf("%w: reassembled payload failed checksum", ErrMismatch)
	}
	return payload, nil
}

// Reset discards all received parts so a new scan can start mid-stream.
func (d *Decoder) Reset() {
	d.total = 0
	d.checksum = ""
	d.parts = make(map[int][]byte)
}

// parse splits a fragment into its components.
func parse(fragment string) (seq, total int, sum string, chunk []byte, err error) {
	if !strings.HasPrefix(fragment, Scheme) {
		return 0, 0, "", nil, fmt.Errorf("%w: missing %q scheme", ErrMalformed, Scheme)
	}
	fields := strings.SplitN(fragment[len(Scheme):], "/", 4)
	if len(fields) != 4 {
		return 0, 0, "", nil, fmt.Errorf("%w: expected seq/total/checksum/data", ErrMalformed)
	}

	seq, err = strconv.Atoi(fields[0])
	if err != nil || seq < 1 {
		return 0, 0, "", nil, fmt.Errorf("%w: bad sequence number %q", ErrMalformed, fields[0])
	}
	total, err = strconv.Atoi(fields[1])
	if err != nil || total < 1 || seq > total {
		return 0, 0, "", nil, fmt.Errorf("%w: bad part count %q", ErrMalformed, fields[1])
	}
	sum = fields[2]
	if len(sum) != checksumLen {
		return 0, 0, "", nil, fmt.Errorf("%w: bad checksum length %d", ErrMalformed, len(sum))
	}
	chunk, err = base64.RawURLEncoding.DecodeString(fields[3])
	if err != nil {
		return 0, 0, "", nil, fmt.Errorf("%w: bad chunk encoding", ErrMalformed)
	}
	return seq, total, sum, chunk, nil
}
