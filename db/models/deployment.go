package models

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/txpull/sourcecheck/db"
)

// ContractDeployment is one observed deployment of a Contract on a chain
// (spec §3). An address on a chain may have multiple deployments across its
// history (redeployment after selfdestruct).
type ContractDeployment struct {
	ID               int64
	ChainID          uint64
	Address          common.Address
	TransactionHash  common.Hash
	ContractID       int64
	BlockNumber      *uint64
	TransactionIndex *uint
	Deployer         *common.Address
}

// UpsertDeployment inserts a deployment row, unique on
// (chain_id, address, transaction_hash, contract_id).
func UpsertDeployment(ctx context.Context, pg *db.Postgres, d ContractDeployment) (int64, error) {
	var id int64
	err := pg.Pool().QueryRow(ctx, `
		INSERT INTO contract_deployments
			(chain_id, address, transaction_hash, contract_id, block_number, transaction_index, deployer)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (chain_id, address, transaction_hash, contract_id) DO UPDATE SET
			block_number = COALESCE(EXCLUDED.block_number, contract_deployments.block_number)
		RETURNING id
	`, d.ChainID, d.Address.Bytes(), d.TransactionHash.Bytes(), d.ContractID, d.BlockNumber, d.TransactionIndex, deployerBytes(d.Deployer)).
		Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func deployerBytes(a *common.Address) []byte {
	if a == nil {
		return nil
	}
	return a.Bytes()
}

// GetDeploymentsByAddress returns every deployment of address on chainID, most recent first.
func GetDeploymentsByAddress(ctx context.Context, pg *db.Postgres, chainID uint64, address common.Address) ([]ContractDeployment, error) {
	rows, err := pg.Pool().Query(ctx, `
		SELECT id, chain_id, address, transaction_hash, contract_id, block_number, transaction_index, deployer
		FROM contract_deployments
		WHERE chain_id = $1 AND address = $2
		ORDER BY block_number DESC NULLS LAST
	`, chainID, address.Bytes())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deployments []ContractDeployment
	for rows.Next() {
		var (
			d               ContractDeployment
			addrBytes       []byte
			txHashBytes     []byte
			deployerBytes   []byte
		)
		if err := rows.Scan(&d.ID, &d.ChainID, &addrBytes, &txHashBytes, &d.ContractID, &d.BlockNumber, &d.TransactionIndex, &deployerBytes); err != nil {
			return nil, err
		}
		d.Address = common.BytesToAddress(addrBytes)
		d.TransactionHash = common.BytesToHash(txHashBytes)
		if deployerBytes != nil {
			addr := common.BytesToAddress(deployerBytes)
			d.Deployer = &addr
		}
		deployments = append(deployments, d)
	}
	return deployments, rows.Err()
}
