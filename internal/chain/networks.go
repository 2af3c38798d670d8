package chain

import "strings"

// GenericPrefix is the network-agnostic Substrate SS58 prefix, accepted
// everywhere as the legacy encoding.
const GenericPrefix uint16 = 42

// Network describes a supported target chain: its SS58 prefix and, when
// known, its explorer base URL.
type Network struct {
	Name          string
	PrimaryPrefix uint16
	LegacyPrefix  uint16
	ExplorerBase  string
}

var networks = map[string]Network{
	"astar":   {Name: "astar", PrimaryPrefix: 5, LegacyPrefix: GenericPrefix, ExplorerBase: "https://astar.subscan.io"},
	"shiden":  {Name: "shiden", PrimaryPrefix: 5, LegacyPrefix: GenericPrefix, ExplorerBase: "https://shiden.subscan.io"},
	"shibuya": {Name: "shibuya", PrimaryPrefix: 5, LegacyPrefix: GenericPrefix, ExplorerBase: "https://shibuya.subscan.io"},
}

// LookupNetwork resolves a network by name. Unknown names yield a network
// with the generic prefix for both families and no explorer.
func LookupNetwork(name string) Network {
	if net, ok := networks[strings.ToLower(strings.TrimSpace(name))]; ok {
		return net
	}
	return Network{Name: name, PrimaryPrefix: GenericPrefix, LegacyPrefix: GenericPrefix}
}

// ExplorerLink builds an extrinsic link for the network, or an empty string
// when the network has no known explorer or the hash is absent or the
// "unknown" sentinel.
func ExplorerLink(name, txHash string) string {
	net := LookupNetwork(name)
	if net.ExplorerBase == "" || txHash == "" || txHash == "unknown" {
		return ""
	}
	return net.ExplorerBase + "/extrinsic/" + txHash
}
