// Copyright 2024 The tlscan Authors
// This file is part of the tlscan library.
//
// The tlscan library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The tlscan library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the tlscan library. If not, see <http://www.gnu.org/licenses/>.

package storage

import "context"

const schemaContracts = `
CREATE TABLE IF NOT EXISTS contracts (
	contract_address VARCHAR(42) NOT NULL PRIMARY KEY,
	bytecode         MEDIUMTEXT NOT NULL,
	from_address     VARCHAR(42) NOT NULL,
	tx_hash          VARCHAR(66) NOT NULL,
	block_number     BIGINT UNSIGNED NOT NULL,
	INDEX idx_contracts_block_number (block_number)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`

const schemaContractsInfo = `
CREATE TABLE IF NOT EXISTS contracts_info (
	contract_address        VARCHAR(42) NOT NULL PRIMARY KEY,
	eth_balance              DECIMAL(65,18) NOT NULL,
	largest_tx_hash          VARCHAR(66) NULL,
	largest_tx_block_number  BIGINT UNSIGNED NULL,
	largest_tx_value         DECIMAL(65,18) NULL,
	CONSTRAINT fk_contracts_info_contract
		FOREIGN KEY (contract_address) REFERENCES contracts (contract_address)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`

const schemaBlocks = `
CREATE TABLE IF NOT EXISTS blocks (
	block_number      BIGINT UNSIGNED NOT NULL PRIMARY KEY,
	miner_address     VARCHAR(42) NOT NULL,
	coinbase_transfer DECIMAL(65,18) NOT NULL,
	base_fee_per_gas  DECIMAL(65,18) NOT NULL,
	gas_fee           DECIMAL(65,18) NOT NULL,
	gas_used          BIGINT UNSIGNED NOT NULL,
	gas_limit         BIGINT UNSIGNED NOT NULL,
	tx_count          BIGINT UNSIGNED NULL
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`

// EnsureSchema creates the three tables if they do not already exist.
// It is idempotent and safe to call from every worker at startup.
func (g *Gateway) EnsureSchema(ctx context.Context) error {
	for _, stmt := range []string{schemaContracts, schemaContractsInfo, schemaBlocks} {
		if _, err := g.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
