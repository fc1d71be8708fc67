package blob

import "errors"

// With runs fn with b and closes b on every exit path, including a panic in
// fn. A close failure is joined to the error returned by fn.
func With(b *Blob, fn func(*Blob) error) (err error) {
	defer func() {
		err = errors.Join(err, b.Close())
	}()
	return fn(b)
}

// WithResult is With for functions producing a value.
func WithResult[T any](b *Blob, fn func(*Blob) (T, error)) (out T, err error) {
	defer func() {
		err = errors.Join(err, b.Close())
	}()
	return fn(b)
}
