package config

type StoreConfig interface {
	GetDataFolder() string
	GetStorePassphrase() string
}

type Store struct {
	src source
}

var _ StoreConfig = Store{}

func (s Store) GetDataFolder() string {
	return s.src.get("FOLDER", "./data")
}

// GetStorePassphrase enables sealing of persisted values when non-empty.
func (s Store) GetStorePassphrase() string {
	return s.src.get("STORE_PASSPHRASE", "")
}
