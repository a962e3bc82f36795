package types

// MainnetName is the exact network name that selects the production hosts.
// Any other name selects the test hosts.
const MainnetName = "Pi Network"

const (
	MainnetURL = "https://api.mainnet.minepi.com"
	TestnetURL = "https://api.testnet.minepi.com"
)

// Network identifies the payment network. Its value doubles as the ledger
// network passphrase.
type Network string

const (
	NetworkMainnet Network = MainnetName
	NetworkTestnet Network = "Pi Testnet"
)

func (n Network) IsMainnet() bool {
	return n == NetworkMainnet
}

func (n Network) String() string {
	return string(n)
}

// Passphrase returns the ledger network passphrase used for signing.
func (n Network) Passphrase() string {
	return string(n)
}

// NetworkConfig is the resolved set of endpoints for one network.
type NetworkConfig struct {
	Network    Network
	APIURL     string
	HorizonURL string
}

// ResolveNetwork maps a network name onto its endpoints. Overrides from cfg
// take precedence over the built-in hosts.
func ResolveNetwork(name string, cfg *Config) NetworkConfig {
	host := TestnetURL
	if Network(name).IsMainnet() {
		host = MainnetURL
	}

	nc := NetworkConfig{
		Network:    Network(name),
		APIURL:     host,
		HorizonURL: host,
	}
	if cfg != nil {
		if cfg.APIURL != "" {
			nc.APIURL = cfg.APIURL
		}
		if cfg.HorizonURL != "" {
			nc.HorizonURL = cfg.HorizonURL
		}
	}
	return nc
}
