package natives

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	amoghecrypt "github.com/amoghe/go-crypt"
	skcrypt "github.com/sergeymakinen/go-crypt"
	"golang.org/x/crypto/bcrypt"

	"lumen/dispatcher"
	"lumen/value"
)

// registerCrypto wires the password-hashing natives spec.md's Domain
// Stack calls for, grounded on this codebase's builtins/crypto.go crypt()
// dispatch (which tries DES/MD5/bcrypt/SHA variants by salt prefix).
// Two crypt(3)-compatible libraries are carried over from this codebase's
// go.mod and given distinct natives rather than collapsed into one, so
// both are genuinely exercised: amoghe/go-crypt backs the traditional
// crypt_unix() entry point, sergeymakinen/go-crypt backs crypt_verify()'s
// rehash-and-compare path.
func registerCrypto(r *dispatcher.Registry) {
	r.Register("crypt_unix", func(args []value.Value) (value.Value, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("crypt_unix() takes exactly 2 arguments, got %d", len(args))
		}
		pw, ok1 := args[0].(*value.Str)
		salt, ok2 := args[1].(*value.Str)
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("crypt_unix() requires (str password, str salt)")
		}
		hash, err := amoghecrypt.Crypt(pw.String(), salt.String())
		if err != nil {
			return nil, fmt.Errorf("crypt_unix: %w", err)
		}
		return value.NewStr(hash), nil
	})

	r.Register("crypt_verify", func(args []value.Value) (value.Value, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("crypt_verify() takes exactly 2 arguments, got %d", len(args))
		}
		pw, ok1 := args[0].(*value.Str)
		hash, ok2 := args[1].(*value.Str)
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("crypt_verify() requires (str password, str hash)")
		}
		h := hash.String()
		if len(h) < 2 {
			return value.Bool(false), nil
		}
		salt := h[:2]
		rehash, err := skcrypt.Crypt(pw.String(), salt)
		if err != nil {
			return nil, fmt.Errorf("crypt_verify: %w", err)
		}
		return value.Bool(rehash == h), nil
	})

	r.Register("bcrypt_hash", func(args []value.Value) (value.Value, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("bcrypt_hash() takes exactly 1 argument, got %d", len(args))
		}
		pw, ok := args[0].(*value.Str)
		if !ok {
			return nil, fmt.Errorf("bcrypt_hash() requires a str argument")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(pw.String()), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("bcrypt_hash: %w", err)
		}
		return value.NewStr(string(hash)), nil
	})

	r.Register("bcrypt_verify", func(args []value.Value) (value.Value, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("bcrypt_verify() takes exactly 2 arguments, got %d", len(args))
		}
		pw, ok1 := args[0].(*value.Str)
		hash, ok2 := args[1].(*value.Str)
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("bcrypt_verify() requires (str password, str hash)")
		}
		err := bcrypt.CompareHashAndPassword([]byte(hash.String()), []byte(pw.String()))
		return value.Bool(err == nil), nil
	})

	r.Register("sha256_hex", func(args []value.Value) (value.Value, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("sha256_hex() takes exactly 1 argument, got %d", len(args))
		}
		s, ok := args[0].(*value.Str)
		if !ok {
			return nil, fmt.Errorf("sha256_hex() requires a str argument")
		}
		sum := sha256.Sum256([]byte(s.String()))
		return value.NewStr(hex.EncodeToString(sum[:])), nil
	})
}
