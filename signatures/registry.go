package signatures

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/jackc/pgx/v5"

	"github.com/txpull/sourcecheck/db"
	"github.com/txpull/sourcecheck/db/models"
)

// maxInsertBatch bounds a single insert() call (spec §4.I "insert(batch:
// [signature], maxBatch=1000)").
const maxInsertBatch = 1000

// Registry implements the Signature Registry's lookup/search/insert/stats
// operations (spec §4.I) over the Postgres signature tables, with per-type
// counts served from the ClickHouse signature_stats table.
type Registry struct {
	pg        *db.Postgres
	ch        *db.ClickHouse
	cache     *SignaturesReader
	canonical map[string]bool
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithPostgres sets the relational store backing lookup/search/insert.
func WithPostgres(pg *db.Postgres) RegistryOption {
	return func(r *Registry) { r.pg = pg }
}

// WithClickHouse sets the OLAP store backing stats().
func WithClickHouse(ch *db.ClickHouse) RegistryOption {
	return func(r *Registry) { r.ch = ch }
}

// WithCanonicalSignatures seeds the build-time canonical signature list used
// to compute lookup()'s filtered flag (spec §4.I). Without one, every
// lookup is reported filtered (no canonical set to filter against).
func WithCanonicalSignatures(texts []string) RegistryOption {
	return func(r *Registry) {
		r.canonical = make(map[string]bool, len(texts))
		for _, t := range texts {
			r.canonical[t] = true
		}
	}
}

// WithCache sets the local Badger-backed signature directory (spec §4.I,
// adapted from the teacher's SignaturesReader) consulted first when
// computing a lookup entry's filtered flag: a hash present in the directory
// with matching text is by definition canonical.
func WithCache(cache *SignaturesReader) RegistryOption {
	return func(r *Registry) { r.cache = cache }
}

// NewRegistry builds a Registry from the given options.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// LookupEntry is one grouped result of lookup() or search() (spec §4.I).
type LookupEntry struct {
	Hash                string
	Name                string
	Filtered            bool
	HasVerifiedContract bool
}

// Lookup resolves hashes (4-byte or 32-byte hex, per kind) to their
// registered signature text, filtered flag, and hasVerifiedContract flag
// (spec §4.I "lookup"). Unknown hashes are returned with an empty Name.
func (r *Registry) Lookup(ctx context.Context, hashes []string, kind models.SignatureType) ([]LookupEntry, error) {
	out := make([]LookupEntry, 0, len(hashes))
	for _, h := range hashes {
		if err := ValidateHash(h); err != nil {
			return nil, err
		}
		raw, err := decodeHash(h)
		if err != nil {
			return nil, err
		}

		switch len(raw) {
		case 4:
			if kind == models.SignatureEvent {
				return nil, fmt.Errorf("event lookups require a 32-byte hash, got %q", h)
			}
			sigs, err := models.GetByHashFour(ctx, r.pg, raw)
			if err != nil {
				return nil, err
			}
			if len(sigs) == 0 {
				out = append(out, LookupEntry{Hash: h})
				continue
			}
			for _, s := range sigs {
				entry, err := r.toEntry(ctx, h, s)
				if err != nil {
					return nil, err
				}
				out = append(out, entry)
			}
		case 32:
			s, err := models.GetByHashThirtyTwo(ctx, r.pg, raw)
			if errors.Is(err, pgx.ErrNoRows) {
				out = append(out, LookupEntry{Hash: h})
				continue
			}
			if err != nil {
				return nil, err
			}
			entry, err := r.toEntry(ctx, h, *s)
			if err != nil {
				return nil, err
			}
			out = append(out, entry)
		default:
			return nil, fmt.Errorf("hash %q decodes to %d bytes, want 4 or 32", h, len(raw))
		}
	}
	return out, nil
}

func (r *Registry) toEntry(ctx context.Context, hash string, s models.Signature) (LookupEntry, error) {
	hasVerified, err := models.HasVerifiedContract(ctx, r.pg, s.ID)
	if err != nil {
		return LookupEntry{}, err
	}
	return LookupEntry{
		Hash:                hash,
		Name:                s.Text,
		Filtered:            r.isCanonical(hash, s.Text),
		HasVerifiedContract: hasVerified,
	}, nil
}

// isCanonical reports whether text is the canonical signature for hash,
// preferring the local directory cache (keyed by hash) and falling back to
// the build-time canonical set (keyed by text) when no cache is configured
// or the cache has no usable entry for hash.
func (r *Registry) isCanonical(hash, text string) bool {
	if r.cache != nil {
		cached, found, err := r.cache.LookupByHex(hash)
		if err == nil && found {
			return cached.Text == text
		}
	}
	if r.canonical == nil {
		return true
	}
	return r.canonical[text]
}

// SearchResult groups search() matches by selector width, since a
// signature's text alone does not reveal whether it names a function, an
// event, or an error (spec §4.I "search").
type SearchResult struct {
	Functions []LookupEntry // keyed by 4-byte hash
	Events    []LookupEntry // keyed by 32-byte hash
}

// Search wildcard-matches registered signature text, translating '*' to SQL
// '%' and '?' to '_' (spec §4.I). pattern must already satisfy
// ValidateSearchPattern.
func (r *Registry) Search(ctx context.Context, pattern string, limit int) (*SearchResult, error) {
	if err := ValidateSearchPattern(pattern); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}

	sigs, err := models.SearchByHexPrefix(ctx, r.pg, toSQLPattern(pattern), limit)
	if err != nil {
		return nil, err
	}

	result := &SearchResult{}
	for _, s := range sigs {
		hasVerified, err := models.HasVerifiedContract(ctx, r.pg, s.ID)
		if err != nil {
			return nil, err
		}
		hash4 := "0x" + hex.EncodeToString(s.HashFour)
		hash32 := "0x" + hex.EncodeToString(s.HashThirtyTwo)

		result.Functions = append(result.Functions, LookupEntry{
			Hash: hash4, Name: s.Text,
			Filtered: r.isCanonical(hash4, s.Text), HasVerifiedContract: hasVerified,
		})
		result.Events = append(result.Events, LookupEntry{
			Hash: hash32, Name: s.Text,
			Filtered: r.isCanonical(hash32, s.Text), HasVerifiedContract: hasVerified,
		})
	}
	return result, nil
}

// toSQLPattern escapes literal underscores, then maps '*' -> '%' and '?' ->
// '_' for an ILIKE pattern (spec §4.I).
func toSQLPattern(pattern string) string {
	escaped := strings.ReplaceAll(pattern, "_", `\_`)
	escaped = strings.ReplaceAll(escaped, "*", "%")
	escaped = strings.ReplaceAll(escaped, "?", "_")
	return escaped
}

// InsertInput is one signature submitted to insert().
type InsertInput struct {
	Text string
	Type models.SignatureType
}

// InsertOutcome reports whether a submitted signature was newly registered.
type InsertOutcome struct {
	Text        string
	WasInserted bool
	HashFour    string
	HashThirtyTwo string
}

// Insert grammar-validates and registers up to maxInsertBatch signatures,
// upserting on (signature_hash_32) conflict (spec §4.I "insert").
func (r *Registry) Insert(ctx context.Context, batch []InsertInput) ([]InsertOutcome, error) {
	if len(batch) > maxInsertBatch {
		return nil, fmt.Errorf("signatures: batch of %d exceeds max %d", len(batch), maxInsertBatch)
	}

	out := make([]InsertOutcome, 0, len(batch))
	for _, in := range batch {
		if err := ValidateSignatureText(in.Text); err != nil {
			return nil, err
		}

		hash32 := crypto.Keccak256([]byte(in.Text))
		hash4 := hash32[:4]

		_, err := models.GetByHashThirtyTwo(ctx, r.pg, hash32)
		wasInserted := errors.Is(err, pgx.ErrNoRows)
		if err != nil && !wasInserted {
			return nil, err
		}

		if _, err := models.InsertSignature(ctx, r.pg, hash4, hash32, in.Text); err != nil {
			return nil, err
		}

		out = append(out, InsertOutcome{
			Text:          in.Text,
			WasInserted:   wasInserted,
			HashFour:      "0x" + hex.EncodeToString(hash4),
			HashThirtyTwo: "0x" + hex.EncodeToString(hash32),
		})
	}
	return out, nil
}

// Stats reads the signature_stats table (spec §4.I "stats").
func (r *Registry) Stats(ctx context.Context) (*db.SignatureStats, error) {
	if r.ch == nil {
		return nil, fmt.Errorf("signatures: no clickhouse store configured")
	}
	return r.ch.SignatureStats(ctx)
}

func decodeHash(hash string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(hash, "0x"))
}
