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

import (
	"context"
	"database/sql"
	"fmt"
	"math/big"
	"strings"

	_ "github.com/go-sql-driver/mysql"
)

// Gateway is the persistence boundary every inspector and worker talks
// to. One Gateway per process; *sql.DB already pools connections
// internally, so there is exactly one pool per worker.
type Gateway struct {
	db *sql.DB
}

// Open connects to dsn (a go-sql-driver/mysql data source name) and
// sizes the connection pool. It does not create the schema; call
// EnsureSchema for that.
func Open(dsn string, maxOpenConns, maxIdleConns int) (*Gateway, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: open: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	return &Gateway{db: db}, nil
}

// Close releases the underlying connection pool.
func (g *Gateway) Close() error { return g.db.Close() }

func decimalString(f *big.Float) string {
	if f == nil {
		return "0"
	}
	return f.Text('f', 18)
}

// BulkInsertContracts inserts rows in a single round trip. Conflicts on
// the primary key are silently skipped (idempotent resume).
func (g *Gateway) BulkInsertContracts(ctx context.Context, rows []Contract) error {
	if len(rows) == 0 {
		return nil
	}
	var sb strings.Builder
	args := make([]interface{}, 0, len(rows)*5)
	sb.WriteString("INSERT INTO contracts (contract_address, bytecode, from_address, tx_hash, block_number) VALUES ")
	for i, r := range rows {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(?, ?, ?, ?, ?)")
		args = append(args, r.ContractAddress, r.Bytecode, r.FromAddress, r.TxHash, r.BlockNumber)
	}
	sb.WriteString(" ON DUPLICATE KEY UPDATE contract_address = contract_address")
	return g.execInTx(ctx, sb.String(), args)
}

// BulkInsertBlocks inserts rows in a single round trip, insert-or-skip
// on primary-key conflict.
func (g *Gateway) BulkInsertBlocks(ctx context.Context, rows []Block) error {
	if len(rows) == 0 {
		return nil
	}
	var sb strings.Builder
	args := make([]interface{}, 0, len(rows)*8)
	sb.WriteString("INSERT INTO blocks (block_number, miner_address, coinbase_transfer, base_fee_per_gas, gas_fee, gas_used, gas_limit, tx_count) VALUES ")
	for i, r := range rows {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args, r.BlockNumber, r.MinerAddress, decimalString(r.CoinbaseTransfer),
			decimalString(r.BaseFeePerGas), decimalString(r.GasFee), r.GasUsed, r.GasLimit, r.TxCount)
	}
	sb.WriteString(" ON DUPLICATE KEY UPDATE block_number = block_number")
	return g.execInTx(ctx, sb.String(), args)
}

// BulkInsertContractInfo inserts rows in a single round trip,
// insert-or-skip on primary-key conflict.
func (g *Gateway) BulkInsertContractInfo(ctx context.Context, rows []ContractInfo) error {
	if len(rows) == 0 {
		return nil
	}
	var sb strings.Builder
	args := make([]interface{}, 0, len(rows)*5)
	sb.WriteString("INSERT INTO contracts_info (contract_address, eth_balance, largest_tx_hash, largest_tx_block_number, largest_tx_value) VALUES ")
	for i, r := range rows {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(?, ?, ?, ?, ?)")
		var largestHash, largestValue interface{}
		if r.LargestTxValue != nil {
			largestValue = decimalString(r.LargestTxValue)
		}
		if r.LargestTxHash != nil {
			largestHash = *r.LargestTxHash
		}
		args = append(args, r.ContractAddress, decimalString(r.EthBalance), largestHash, r.LargestTxBlockNumber, largestValue)
	}
	sb.WriteString(" ON DUPLICATE KEY UPDATE contract_address = contract_address")
	return g.execInTx(ctx, sb.String(), args)
}

// BulkUpdateContractInfo merges the largest_tx_* triple by primary
// key. The update clause uses GREATEST() so that two workers racing on
// disjoint sub-ranges can never regress a value already raised by a
// sibling — see DESIGN.md for why this redesigns the original's
// last-writer-wins update.
func (g *Gateway) BulkUpdateContractInfo(ctx context.Context, rows []ContractInfoUpdate) error {
	if len(rows) == 0 {
		return nil
	}
	var sb strings.Builder
	args := make([]interface{}, 0, len(rows)*5)
	sb.WriteString("INSERT INTO contracts_info (contract_address, eth_balance, largest_tx_hash, largest_tx_block_number, largest_tx_value) VALUES ")
	for i, r := range rows {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(?, 0, ?, ?, ?)")
		args = append(args, r.ContractAddress, r.LargestTxHash, r.LargestTxBlockNumber, decimalString(r.LargestTxValue))
	}
	sb.WriteString(` ON DUPLICATE KEY UPDATE
		largest_tx_hash = IF(VALUES(largest_tx_value) > largest_tx_value OR largest_tx_value IS NULL, VALUES(largest_tx_hash), largest_tx_hash),
		largest_tx_block_number = IF(VALUES(largest_tx_value) > largest_tx_value OR largest_tx_value IS NULL, VALUES(largest_tx_block_number), largest_tx_block_number),
		largest_tx_value = GREATEST(COALESCE(largest_tx_value, 0), VALUES(largest_tx_value))`)
	return g.execInTx(ctx, sb.String(), args)
}

func (g *Gateway) execInTx(ctx context.Context, query string, args []interface{}) error {
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: begin tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("storage: exec: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage: commit: %w", err)
	}
	return nil
}

// LastWrittenBlock returns the maximum block_number strictly less than
// upperBound already committed to table, or ok=false if none exists.
// table must be "contracts" or "blocks" — the only two tables keyed
// (directly or indirectly) by block number.
func (g *Gateway) LastWrittenBlock(ctx context.Context, table string, upperBound uint64) (uint64, bool, error) {
	if table != "contracts" && table != "blocks" {
		return 0, false, fmt.Errorf("storage: unknown table %q", table)
	}
	row := g.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT MAX(block_number) FROM %s WHERE block_number < ?", table), upperBound)
	var max sql.NullInt64
	if err := row.Scan(&max); err != nil {
		return 0, false, fmt.Errorf("storage: last written block: %w", err)
	}
	if !max.Valid {
		return 0, false, nil
	}
	return uint64(max.Int64), true, nil
}

// LastWrittenBlockAttributes returns the maximum block_number strictly
// less than upperBound whose tx_count column is already populated, or
// ok=false if none exists. This is the independent resume point for
// the supplemented block-attributes pass: a block row can exist
// (written by the base block inspector) before its tx_count is filled
// in by a later attributes-only run.
func (g *Gateway) LastWrittenBlockAttributes(ctx context.Context, upperBound uint64) (uint64, bool, error) {
	row := g.db.QueryRowContext(ctx,
		"SELECT MAX(block_number) FROM blocks WHERE tx_count IS NOT NULL AND block_number < ?", upperBound)
	var max sql.NullInt64
	if err := row.Scan(&max); err != nil {
		return 0, false, fmt.Errorf("storage: last written block attributes: %w", err)
	}
	if !max.Valid {
		return 0, false, nil
	}
	return uint64(max.Int64), true, nil
}

// UpdateBlockTxCounts fills in the tx_count column for already-written
// block rows. Rows with no existing blocks row are silently ignored —
// the attributes pass only enriches rows the base block inspector has
// already committed.
func (g *Gateway) UpdateBlockTxCounts(ctx context.Context, counts map[uint64]uint64) error {
	if len(counts) == 0 {
		return nil
	}
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: begin tx: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, "UPDATE blocks SET tx_count = ? WHERE block_number = ?")
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("storage: prepare: %w", err)
	}
	defer stmt.Close()

	for blockNumber, count := range counts {
		if _, err := stmt.ExecContext(ctx, count, blockNumber); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("storage: update tx count for block %d: %w", blockNumber, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage: commit: %w", err)
	}
	return nil
}

// ContractsInRange returns (block_number, contract_address) pairs for
// contracts discovered in [a, b), for the contract-info inspector.
func (g *Gateway) ContractsInRange(ctx context.Context, a, b uint64) ([]ContractRef, error) {
	rows, err := g.db.QueryContext(ctx,
		"SELECT block_number, contract_address FROM contracts WHERE block_number >= ? AND block_number < ?", a, b)
	if err != nil {
		return nil, fmt.Errorf("storage: contracts in range: %w", err)
	}
	defer rows.Close()

	var out []ContractRef
	for rows.Next() {
		var ref ContractRef
		if err := rows.Scan(&ref.BlockNumber, &ref.ContractAddress); err != nil {
			return nil, fmt.Errorf("storage: scan contract ref: %w", err)
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}

// ContractInfoMap loads the address -> largest_tx_value map the block
// inspector preloads once per sub-range to detect new value records.
func (g *Gateway) ContractInfoMap(ctx context.Context) (map[string]*big.Float, error) {
	rows, err := g.db.QueryContext(ctx, "SELECT contract_address, largest_tx_value FROM contracts_info")
	if err != nil {
		return nil, fmt.Errorf("storage: contract info map: %w", err)
	}
	defer rows.Close()

	out := make(map[string]*big.Float)
	for rows.Next() {
		var addr string
		var value sql.NullString
		if err := rows.Scan(&addr, &value); err != nil {
			return nil, fmt.Errorf("storage: scan contract info: %w", err)
		}
		f := big.NewFloat(0)
		if value.Valid {
			if _, ok := f.SetString(value.String); !ok {
				return nil, fmt.Errorf("storage: invalid decimal %q for %s", value.String, addr)
			}
		}
		out[addr] = f
	}
	return out, rows.Err()
}

// AllContractAddresses returns every discovered contract's bytecode
// keyed by address, for the out-of-scope deep-classifier CLI
// (cmd/tlscan-analyze) to fan out over.
func (g *Gateway) AllContractAddresses(ctx context.Context) (map[string]string, error) {
	rows, err := g.db.QueryContext(ctx, "SELECT contract_address, bytecode FROM contracts")
	if err != nil {
		return nil, fmt.Errorf("storage: all contract addresses: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var addr, bytecode string
		if err := rows.Scan(&addr, &bytecode); err != nil {
			return nil, fmt.Errorf("storage: scan contract address: %w", err)
		}
		out[addr] = bytecode
	}
	return out, rows.Err()
}

// PruneDuplicateBytecode removes Contract rows whose bytecode is a
// byte-for-byte duplicate of an earlier-discovered contract's, keeping
// the earliest (lowest block_number) row. A row that has a
// contracts_info row is never removed. This is a maintenance
// operation, not run automatically by any inspector: operators invoke
// it out-of-band once a full-history pass accumulates enough proxy
// clones to make deduplication worth the table scan.
func (g *Gateway) PruneDuplicateBytecode(ctx context.Context) (int64, error) {
	res, err := g.db.ExecContext(ctx, `
		DELETE c1 FROM contracts c1
		JOIN contracts c2
			ON c1.bytecode = c2.bytecode
			AND (c1.block_number > c2.block_number
				OR (c1.block_number = c2.block_number AND c1.contract_address > c2.contract_address))
		WHERE c1.contract_address NOT IN (SELECT contract_address FROM contracts_info)`)
	if err != nil {
		return 0, fmt.Errorf("storage: prune duplicate bytecode: %w", err)
	}
	return res.RowsAffected()
}
