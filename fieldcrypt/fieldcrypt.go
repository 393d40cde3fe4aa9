// Package fieldcrypt provides field-level encryption for sensitive
// profile and memory data.
//
// Each protected field carries an explicit encrypted/plaintext tag so a
// store can hold encrypted records next to legacy plaintext ones: the
// tag, not a heuristic, decides whether decryption is attempted.
package fieldcrypt

// Cipher is the symmetric encryption collaborator. Ciphertext is an
// opaque printable string safe to embed in JSON documents.
type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// Field is a tagged union of plaintext-or-ciphertext. The zero value is
// an empty plaintext field.
type Field struct {
	value     string
	encrypted bool
}

// Plaintext wraps a value that is stored as-is.
func Plaintext(s string) Field {
	return Field{value: s}
}

// FromStored reconstructs a Field from its stored representation: the
// raw value plus the encryption flag recorded alongside it.
func FromStored(value string, encrypted bool) Field {
	return Field{value: value, encrypted: encrypted}
}

// Seal encrypts plaintext with c and returns the encrypted field. A nil
// cipher produces a plaintext field, which keeps encryption optional in
// local setups.
func Seal(c Cipher, plaintext string) (Field, error) {
	if c == nil {
		return Plaintext(plaintext), nil
	}
	ct, err := c.Encrypt(plaintext)
	if err != nil {
		return Field{}, err
	}
	return Field{value: ct, encrypted: true}, nil
}

// Reveal returns the plaintext, decrypting with c only when the field
// is tagged encrypted. Legacy plaintext passes through untouched.
func (f Field) Reveal(c Cipher) (string, error) {
	if !f.encrypted {
		return f.value, nil
	}
	if c == nil {
		return "", ErrNoCipher
	}
	return c.Decrypt(f.value)
}

// Stored returns the raw value and encryption flag for persistence.
func (f Field) Stored() (value string, encrypted bool) {
	return f.value, f.encrypted
}

// IsEncrypted reports whether the field holds ciphertext.
func (f Field) IsEncrypted() bool { return f.encrypted }

// IsZero reports whether the field is empty.
func (f Field) IsZero() bool { return f.value == "" }
