package ceremony

import (
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/sha3"
)

// IdentityKind tags the origin of a participant identity.
type IdentityKind uint8

const (
	Ethereum IdentityKind = iota + 1
	Github
)

// Identity names a participant. The zero value is not a valid identity.
// Two identities are equal iff their normalized forms are equal, so == works.
type Identity struct {
	kind IdentityKind
	// lowercase address for Ethereum, "<id>|<login>" or "<login>" for Github
	payload string
}

func (id Identity) Kind() IdentityKind { return id.kind }
func (id Identity) IsZero() bool       { return id.kind == 0 }

// ParseIdentity accepts "eth|0x<40 hex>" and "git|<handle>" where handle is either
// a login or "<numeric id>|<login>". Mixed case addresses must carry a valid EIP-55
// checksum. Logins are case insensitive and stored lowercase.
func ParseIdentity(s string) (Identity, error) {
	tag, rest, ok := strings.Cut(s, "|")
	if !ok {
		return Identity{}, errors.Wrapf(ErrInvalidIdentity, "%q", s)
	}
	switch tag {
	case "eth":
		addr, err := parseAddress(rest)
		if err != nil {
			return Identity{}, errors.Wrapf(ErrInvalidIdentity, "%q: %v", s, err)
		}
		return Identity{kind: Ethereum, payload: addr}, nil
	case "git":
		handle, err := parseHandle(rest)
		if err != nil {
			return Identity{}, errors.Wrapf(ErrInvalidIdentity, "%q: %v", s, err)
		}
		return Identity{kind: Github, payload: handle}, nil
	}
	return Identity{}, errors.Wrapf(ErrInvalidIdentity, "unknown tag %q", tag)
}

// MustParseIdentity is ParseIdentity for constants.
func MustParseIdentity(s string) Identity {
	id, err := ParseIdentity(s)
	if err != nil {
		panic(err)
	}
	return id
}

func (id Identity) String() string {
	switch id.kind {
	case Ethereum:
		return "eth|" + id.payload
	case Github:
		return "git|" + id.payload
	}
	return ""
}

func (id Identity) MarshalText() ([]byte, error) {
	if id.IsZero() {
		return nil, errors.Wrap(ErrInvalidIdentity, "empty identity")
	}
	return []byte(id.String()), nil
}

func (id *Identity) UnmarshalText(text []byte) error {
	parsed, err := ParseIdentity(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func parseAddress(s string) (string, error) {
	if !strings.HasPrefix(s, "0x") {
		return "", errors.New("address must start with 0x")
	}
	hexAddr := s[2:]
	if len(hexAddr) != 40 {
		return "", errors.Errorf("address has %d hex characters", len(hexAddr))
	}
	if _, err := hex.DecodeString(hexAddr); err != nil {
		return "", err
	}
	lower := strings.ToLower(hexAddr)
	if hexAddr != lower && hexAddr != strings.ToUpper(hexAddr) {
		if checksumAddress(lower) != hexAddr {
			return "", errors.New("bad EIP-55 checksum")
		}
	}
	return "0x" + lower, nil
}

// checksumAddress applies EIP-55 mixed case encoding to a lowercase hex address.
func checksumAddress(lower string) string {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(lower))
	digest := h.Sum(nil)

	out := []byte(lower)
	for i, c := range out {
		if c < 'a' || c > 'f' {
			continue
		}
		nibble := digest[i/2]
		if i%2 == 0 {
			nibble >>= 4
		}
		if nibble&0x0f >= 8 {
			out[i] = c - 'a' + 'A'
		}
	}
	return string(out)
}

func parseHandle(s string) (string, error) {
	login := s
	if id, name, ok := strings.Cut(s, "|"); ok {
		if _, err := strconv.ParseUint(id, 10, 64); err != nil {
			return "", errors.Errorf("github id %q is not numeric", id)
		}
		login = name
	}
	if err := validLogin(login); err != nil {
		return "", err
	}
	return strings.ToLower(s), nil
}

// Github logins: 1 to 39 alphanumerics or single hyphens, no leading or trailing hyphen.
func validLogin(login string) error {
	if len(login) == 0 || len(login) > 39 {
		return errors.Errorf("login %q must have 1 to 39 characters", login)
	}
	if login[0] == '-' || login[len(login)-1] == '-' || strings.Contains(login, "--") {
		return errors.Errorf("login %q has misplaced hyphens", login)
	}
	for _, c := range login {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-':
		default:
			return errors.Errorf("login %q has invalid character %q", login, c)
		}
	}
	return nil
}
