package codec

// Codec encodes the records a graph store writes into its buffer.
type Codec interface {
	Marshal(v interface{}) ([]byte, error)
	Unmarshal(data []byte, v interface{}) error
}
