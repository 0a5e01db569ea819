package archive

// Archive is the contract for storing export artifacts (CSV lead exports,
// sync reports) outside the server's local disk.
type Archive interface {
	Store(name string, data []byte) error
	Retrieve(name string) ([]byte, error)
	List(prefix string) ([]string, error)
	Delete(name string) error
}
