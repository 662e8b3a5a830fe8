package storage

import "errors"

type Appender interface {
	Append(e Entry) error
}

// Fanout appends to every target and joins their errors.
type Fanout []Appender

func (f Fanout) Append(e Entry) error {
	var errs []error
	for _, target := range f {
		if err := target.Append(e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
