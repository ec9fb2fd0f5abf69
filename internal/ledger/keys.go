package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gamebook-server/internal/model"

	"github.com/gagliardetto/solana-go"
)

var ErrInvalidPrivateKey = errors.New("invalid private key")

// ParseAddress разбирает адрес читателя. Ошибка всегда оборачивает model.ErrInvalidAccount.
func ParseAddress(s string) (solana.PublicKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return solana.PublicKey{}, fmt.Errorf("%w: empty address", model.ErrInvalidAccount)
	}
	pk, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: %v", model.ErrInvalidAccount, err)
	}
	return pk, nil
}

// ParsePrivateKey принимает ключ в одном из форматов:
// base58, JSON-массив байт (файл keypair solana-keygen) или байты через запятую.
func ParsePrivateKey(s string) (solana.PrivateKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidPrivateKey)
	}

	var raw []byte
	switch {
	case strings.HasPrefix(s, "["):
		var ints []int
		if err := json.Unmarshal([]byte(s), &ints); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
		}
		b, err := intsToBytes(ints)
		if err != nil {
			return nil, err
		}
		raw = b
	case strings.Contains(s, ","):
		parts := strings.Split(s, ",")
		ints := make([]int, 0, len(parts))
		for _, p := range parts {
			n, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
			}
			ints = append(ints, n)
		}
		b, err := intsToBytes(ints)
		if err != nil {
			return nil, err
		}
		raw = b
	default:
		pk, err := solana.PrivateKeyFromBase58(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
		}
		raw = pk
	}

	if len(raw) != 64 {
		return nil, fmt.Errorf("%w: expected 64 bytes, got %d", ErrInvalidPrivateKey, len(raw))
	}
	return solana.PrivateKey(raw), nil
}

func intsToBytes(ints []int) ([]byte, error) {
	out := make([]byte, len(ints))
	for i, n := range ints {
		if n < 0 || n > 255 {
			return nil, fmt.Errorf("%w: byte %d out of range: %d", ErrInvalidPrivateKey, i, n)
		}
		out[i] = byte(n)
	}
	return out, nil
}
