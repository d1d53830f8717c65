// Package ocra implements the OATH Challenge-Response Algorithm (RFC 6287).
//
// An OCRA computation is parameterized by a suite descriptor string such as
// "OCRA-1:HOTP-SHA1-6:QN08" which names the HMAC hash function, the number
// of truncated digits and the data inputs that are mixed into the keyed
// hash (counter, question, password hash, session information, timestamp).
// The package is pure: parsing and generation have no side effects and no
// internal state.
package ocra

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash"
	"math/big"
	"strconv"
	"strings"
	"time"
)

// FormatError reports a malformed suite descriptor or an input that does not
// satisfy the suite's data-input requirements.
type FormatError struct {
	msg string
}

func (e *FormatError) Error() string { return "ocra: " + e.msg }

func formatErrorf(format string, args ...any) *FormatError {
	return &FormatError{msg: fmt.Sprintf(format, args...)}
}

// Hash identifies the HMAC hash function of a suite.
type Hash string

const (
	SHA1   Hash = "SHA1"
	SHA256 Hash = "SHA256"
	SHA512 Hash = "SHA512"
)

func (h Hash) new() func() hash.Hash {
	switch h {
	case SHA1:
		return sha1.New
	case SHA256:
		return sha256.New
	case SHA512:
		return sha512.New
	}
	return nil
}

func (h Hash) size() int {
	switch h {
	case SHA1:
		return sha1.Size
	case SHA256:
		return sha256.Size
	case SHA512:
		return sha512.Size
	}
	return 0
}

// QuestionFormat describes how the challenge question is encoded into the
// 128-byte question field.
type QuestionFormat byte

const (
	QuestionNumeric      QuestionFormat = 'N'
	QuestionAlphanumeric QuestionFormat = 'A'
	QuestionHex          QuestionFormat = 'H'
)

// questionFieldSize is the fixed size of the question field in the
// data-input block, regardless of the declared question length.
const questionFieldSize = 128

// Suite is a parsed OCRA suite descriptor.
type Suite struct {
	// Raw is the original descriptor string. It is mixed into the
	// data-input block verbatim, so it must be kept byte for byte.
	Raw string

	Hash   Hash
	Digits int

	IncludesCounter   bool
	QuestionFormat    QuestionFormat
	QuestionLength    int
	PasswordHash      Hash // zero when the suite has no P input
	SessionLength     int  // zero when the suite has no S input
	TimestampStep     time.Duration
	IncludesTimestamp bool
}

// ParseSuite parses an OCRA suite descriptor of the form
// "OCRA-1:HOTP-<hash>-<digits>:<data-input>".
func ParseSuite(s string) (Suite, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return Suite{}, formatErrorf("suite %q: want 3 colon-separated components", s)
	}
	if parts[0] != "OCRA-1" {
		return Suite{}, formatErrorf("suite %q: unsupported algorithm %q", s, parts[0])
	}

	suite := Suite{Raw: s}

	crypto := strings.Split(parts[1], "-")
	if len(crypto) != 3 || crypto[0] != "HOTP" {
		return Suite{}, formatErrorf("suite %q: unsupported crypto function %q", s, parts[1])
	}
	switch Hash(crypto[1]) {
	case SHA1, SHA256, SHA512:
		suite.Hash = Hash(crypto[1])
	default:
		return Suite{}, formatErrorf("suite %q: unsupported hash %q", s, crypto[1])
	}
	digits, err := strconv.Atoi(crypto[2])
	if err != nil || digits < 4 || digits > 10 {
		return Suite{}, formatErrorf("suite %q: truncation digits %q out of range", s, crypto[2])
	}
	suite.Digits = digits

	if err := suite.parseDataInput(parts[2]); err != nil {
		return Suite{}, err
	}
	return suite, nil
}

// parseDataInput parses the third suite component: an ordered dash-separated
// list [C]-QFnn-[PH]-[Snnn]-[TnU].
func (s *Suite) parseDataInput(in string) error {
	tokens := strings.Split(in, "-")
	i := 0

	if i < len(tokens) && tokens[i] == "C" {
		s.IncludesCounter = true
		i++
	}

	if i >= len(tokens) || len(tokens[i]) == 0 || tokens[i][0] != 'Q' {
		return formatErrorf("suite %q: missing question descriptor", s.Raw)
	}
	q := tokens[i]
	if len(q) != 4 {
		return formatErrorf("suite %q: malformed question descriptor %q", s.Raw, q)
	}
	switch QuestionFormat(q[1]) {
	case QuestionNumeric, QuestionAlphanumeric, QuestionHex:
		s.QuestionFormat = QuestionFormat(q[1])
	default:
		return formatErrorf("suite %q: unknown question format %q", s.Raw, string(q[1]))
	}
	qlen, err := strconv.Atoi(q[2:])
	if err != nil || qlen < 4 || qlen > 64 {
		return formatErrorf("suite %q: question length %q out of range", s.Raw, q[2:])
	}
	s.QuestionLength = qlen
	i++

	if i < len(tokens) && strings.HasPrefix(tokens[i], "P") {
		switch Hash(tokens[i][1:]) {
		case SHA1, SHA256, SHA512:
			s.PasswordHash = Hash(tokens[i][1:])
		default:
			return formatErrorf("suite %q: unsupported password hash %q", s.Raw, tokens[i])
		}
		i++
	}

	if i < len(tokens) && strings.HasPrefix(tokens[i], "S") {
		if tokens[i] == "S" {
			// Bare S defaults to 64 bytes of session information.
			s.SessionLength = 64
		} else {
			n, err := strconv.Atoi(tokens[i][1:])
			if err != nil || len(tokens[i]) != 4 || n < 1 || n > 512 {
				return formatErrorf("suite %q: malformed session descriptor %q", s.Raw, tokens[i])
			}
			s.SessionLength = n
		}
		i++
	}

	if i < len(tokens) && strings.HasPrefix(tokens[i], "T") {
		t := tokens[i]
		if len(t) < 3 {
			return formatErrorf("suite %q: malformed timestamp descriptor %q", s.Raw, t)
		}
		n, err := strconv.Atoi(t[1 : len(t)-1])
		if err != nil || n < 1 || n > 59 {
			return formatErrorf("suite %q: malformed timestamp descriptor %q", s.Raw, t)
		}
		var unit time.Duration
		switch t[len(t)-1] {
		case 'S':
			unit = time.Second
		case 'M':
			unit = time.Minute
		case 'H':
			unit = time.Hour
		default:
			return formatErrorf("suite %q: unknown timestamp unit %q", s.Raw, string(t[len(t)-1]))
		}
		s.TimestampStep = time.Duration(n) * unit
		s.IncludesTimestamp = true
		i++
	}

	if i != len(tokens) {
		return formatErrorf("suite %q: unexpected data-input token %q", s.Raw, tokens[i])
	}
	return nil
}

// Input carries the data inputs for a single OCRA computation. Fields that
// the suite does not declare are ignored.
type Input struct {
	Counter  uint64
	Question string
	// PasswordHash is the hex-encoded hash of the PIN/password, computed
	// with the hash function the suite declares (P input).
	PasswordHash string
	// Session is the session information, taken as raw ASCII bytes.
	Session string
	// Timestamp is the wall-clock time for suites with a T input. The zero
	// value means "now".
	Timestamp time.Time
}

// Generate computes the OCRA response for the given hex-encoded key and
// inputs. The result is a decimal string of exactly Suite.Digits digits.
func (s Suite) Generate(key string, in Input) (string, error) {
	keyBytes, err := hex.DecodeString(key)
	if err != nil {
		return "", formatErrorf("suite %q: key is not valid hex", s.Raw)
	}
	if len(keyBytes) == 0 {
		return "", formatErrorf("suite %q: empty key", s.Raw)
	}

	msg := make([]byte, 0, len(s.Raw)+1+8+questionFieldSize+64+512+8)
	msg = append(msg, s.Raw...)
	msg = append(msg, 0x00)

	if s.IncludesCounter {
		var c [8]byte
		binary.BigEndian.PutUint64(c[:], in.Counter)
		msg = append(msg, c[:]...)
	}

	q, err := s.encodeQuestion(in.Question)
	if err != nil {
		return "", err
	}
	msg = append(msg, q...)

	if s.PasswordHash != "" {
		p, err := hex.DecodeString(in.PasswordHash)
		if err != nil {
			return "", formatErrorf("suite %q: password hash is not valid hex", s.Raw)
		}
		size := s.PasswordHash.size()
		if len(p) > size {
			return "", formatErrorf("suite %q: password hash longer than %d bytes", s.Raw, size)
		}
		field := make([]byte, size)
		copy(field[size-len(p):], p)
		msg = append(msg, field...)
	}

	if s.SessionLength > 0 {
		sess := []byte(in.Session)
		if len(sess) > s.SessionLength {
			return "", formatErrorf("suite %q: session longer than %d bytes", s.Raw, s.SessionLength)
		}
		field := make([]byte, s.SessionLength)
		copy(field[s.SessionLength-len(sess):], sess)
		msg = append(msg, field...)
	}

	if s.IncludesTimestamp {
		ts := in.Timestamp
		if ts.IsZero() {
			ts = time.Now()
		}
		steps := uint64(ts.Unix() / int64(s.TimestampStep/time.Second))
		var t [8]byte
		binary.BigEndian.PutUint64(t[:], steps)
		msg = append(msg, t[:]...)
	}

	mac := hmac.New(s.Hash.new(), keyBytes)
	mac.Write(msg)
	return truncate(mac.Sum(nil), s.Digits), nil
}

// encodeQuestion encodes the question into the fixed 128-byte field,
// left-justified and zero-padded. Numeric questions are converted through
// their big-integer hex representation, alphanumeric questions are taken as
// ASCII and hex questions are decoded; odd-length hex gets a trailing zero
// nibble, per the reference implementation.
func (s Suite) encodeQuestion(question string) ([]byte, error) {
	if question == "" {
		return nil, formatErrorf("suite %q: empty question", s.Raw)
	}

	var raw []byte
	switch s.QuestionFormat {
	case QuestionNumeric:
		n, ok := new(big.Int).SetString(question, 10)
		if !ok {
			return nil, formatErrorf("suite %q: question %q is not decimal", s.Raw, question)
		}
		h := n.Text(16)
		if len(h)%2 != 0 {
			h += "0"
		}
		var err error
		raw, err = hex.DecodeString(h)
		if err != nil {
			return nil, formatErrorf("suite %q: cannot encode question %q", s.Raw, question)
		}
	case QuestionAlphanumeric:
		raw = []byte(question)
	case QuestionHex:
		h := question
		if len(h)%2 != 0 {
			h += "0"
		}
		var err error
		raw, err = hex.DecodeString(h)
		if err != nil {
			return nil, formatErrorf("suite %q: question %q is not hex", s.Raw, question)
		}
	}

	if len(raw) > questionFieldSize {
		return nil, formatErrorf("suite %q: question longer than %d bytes", s.Raw, questionFieldSize)
	}
	field := make([]byte, questionFieldSize)
	copy(field, raw)
	return field, nil
}

// truncate applies the HOTP dynamic truncation (RFC 4226 §5.3) and formats
// the result as a zero-padded decimal string.
func truncate(sum []byte, digits int) string {
	offset := sum[len(sum)-1] & 0x0f
	code := int64(sum[offset]&0x7f)<<24 |
		int64(sum[offset+1])<<16 |
		int64(sum[offset+2])<<8 |
		int64(sum[offset+3])

	mod := int64(1)
	for range digits {
		mod *= 10
	}
	return fmt.Sprintf("%0*d", digits, code%mod)
}

// Generate parses the suite and computes a response using only a question
// and session information. This is the call shape used by the
// challenge-response authentication flow, where the suite carries no
// counter, password or timestamp input.
func Generate(suite, key, question, session string) (string, error) {
	s, err := ParseSuite(suite)
	if err != nil {
		return "", err
	}
	return s.Generate(key, Input{Question: question, Session: session})
}
