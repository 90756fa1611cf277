package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
)

var segmentSpace = big.NewInt(1_000_000)

// CodeGenerator produces 12-digit confirmation codes: two zero-padded
// 6-digit segments drawn from a cryptographic source.
type CodeGenerator struct {
	Rand io.Reader // nil means crypto/rand.Reader
}

func (g CodeGenerator) candidate() (string, error) {
	src := g.Rand
	if src == nil {
		src = rand.Reader
	}
	a, err := rand.Int(src, segmentSpace)
	if err != nil {
		return "", fmt.Errorf("confirmation code: %w", err)
	}
	b, err := rand.Int(src, segmentSpace)
	if err != nil {
		return "", fmt.Errorf("confirmation code: %w", err)
	}
	return fmt.Sprintf("%06d%06d", a.Int64(), b.Int64()), nil
}

// Generate draws candidates until exists reports one unused.  There is no
// attempt cap; only ctx ends the loop early.  The storage unique key on
// (partner_id, confirmation_code) still guards the write.
func (g CodeGenerator) Generate(ctx context.Context, exists func(context.Context, string) (bool, error)) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		code, err := g.candidate()
		if err != nil {
			return "", err
		}
		taken, err := exists(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
}
