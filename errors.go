package mixpack

// CorruptError marks input that cannot be decoded: the decoder ran past the
// end of the renormalization buffer or a sentinel byte never appeared.
// Contract violations, such as mismatched precision between encoder and
// decoder or an invalid bit value, are programmer errors and panic instead.
type CorruptError struct {
	Msg string
}

// Error returns the error message with the prefix "mixpack: corrupt input - ".
func (e *CorruptError) Error() string {
	return "mixpack: corrupt input - " + e.Msg
}

// corrupt creates a new CorruptError with the given message.
func corrupt(msg string) error {
	return &CorruptError{Msg: msg}
}
