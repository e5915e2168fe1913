package fielderr

type Action int8

const (
	Unknown Action = iota
	Hash
	Encrypt
	Decrypt
	Mask
)

func (a Action) String() string {
	switch a {
	case Hash:
		return "hash"
	case Encrypt:
		return "encrypt"
	case Decrypt:
		return "decrypt"
	case Mask:
		return "mask"
	default:
		return "unknown"
	}
}
