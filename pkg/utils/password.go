package utils

import (
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

type Hasher struct {
	Cost int
}

func NewHasher(cost int) *Hasher {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{Cost: cost}
}

func (h *Hasher) Hash(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify 摘要格式不对时返回 false
func (h *Hasher) Verify(pw, hashed string) bool {
	if hashed == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(pw)) == nil
}

// MaxPasswordBytes bcrypt 只接受前 72 字节，超出直接报错
const MaxPasswordBytes = 72

// StrongPassword 至少 8 位且不超过 72 字节，含大写、小写、数字、符号
func StrongPassword(pw string) bool {
	if len([]rune(pw)) < 8 || len(pw) > MaxPasswordBytes {
		return false
	}
	var upper, lower, digit, symbol bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}
	return upper && lower && digit && symbol
}
