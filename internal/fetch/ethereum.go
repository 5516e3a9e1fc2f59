package fetch

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"
)

// EthChainReader enriches the Ethereum chain stat with live block and gas
// data when an RPC endpoint is configured. All failures degrade to the
// unenriched stat; this reader never blocks a chain-stats response.
type EthChainReader struct {
	client *ethclient.Client
}

// NewEthChainReader dials the RPC endpoint. An empty endpoint or a failed
// dial yields a nil reader, which every method treats as "not configured".
func NewEthChainReader(endpoint string) *EthChainReader {
	if endpoint == "" {
		return nil
	}
	client, err := ethclient.Dial(endpoint)
	if err != nil {
		logrus.Warnf("Ethereum RPC unavailable at %s: %v", endpoint, err)
		return nil
	}
	return &EthChainReader{client: client}
}

// BlockNumber returns the current head block number.
func (r *EthChainReader) BlockNumber(ctx context.Context) (uint64, error) {
	return r.client.BlockNumber(ctx)
}

// GasPriceGwei returns the suggested gas price in gwei.
func (r *EthChainReader) GasPriceGwei(ctx context.Context) (float64, error) {
	wei, err := r.client.SuggestGasPrice(ctx)
	if err != nil {
		return 0, err
	}
	gwei := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(1e9))
	out, _ := gwei.Float64()
	return out, nil
}

// Close releases the underlying RPC connection.
func (r *EthChainReader) Close() {
	if r != nil && r.client != nil {
		r.client.Close()
	}
}
