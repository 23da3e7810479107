package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"

	"hotline/domain"
)

const clientPrefix = "client:"

// RecipientRepository persists recipient documents in BadgerDB.
// One document per recipient under "client:<id>", JSON-encoded:
// {id, name, icon, messages: [{voice, group_message}]}.
// The running process is the source of truth for queues; the store is a
// best-effort durability layer written on every queue mutation.
type RecipientRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewRecipientRepository(db *badger.DB, log *slog.Logger) RecipientRepository {
	return RecipientRepository{db: db, log: log}
}

type clientDocument struct {
	ID       string                 `json:"id"`
	Name     string                 `json:"name"`
	Icon     string                 `json:"icon"`
	Messages []domain.QueuedMessage `json:"messages"`
}

// LoadAll reads every recipient document. Iteration is a prefix scan, so
// recipients come back in lexicographic id order; that order is also the
// broadcast order for the lifetime of the process.
func (r RecipientRepository) LoadAll() ([]*domain.Recipient, error) {
	var docs []clientDocument
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(clientPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				var doc clientDocument
				if err := json.Unmarshal(value, &doc); err != nil {
					return fmt.Errorf("corrupt recipient document %s: %w", it.Item().Key(), err)
				}
				docs = append(docs, doc)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lo.Map(docs, func(doc clientDocument, _ int) *domain.Recipient {
		return domain.NewRecipient(doc.ID, doc.Name, doc.Icon, doc.Messages)
	}), nil
}

// SaveQueue rewrites the message list of one recipient document, leaving the
// display metadata as provisioned.
func (r RecipientRepository) SaveQueue(recipientID string, queue []domain.QueuedMessage) error {
	key := []byte(clientPrefix + recipientID)
	return r.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return fmt.Errorf("unknown recipient %s: %w", recipientID, err)
		}
		var doc clientDocument
		err = item.Value(func(value []byte) error {
			return json.Unmarshal(value, &doc)
		})
		if err != nil {
			return err
		}
		doc.Messages = queue
		bytes, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		return txn.Set(key, bytes)
	})
}

// Seed writes the given recipients as fresh documents. Used once, when the
// store is empty on first boot.
func (r RecipientRepository) Seed(recipients []*domain.Recipient) error {
	r.log.Info(fmt.Sprintf("Seeding %d default recipients", len(recipients)))
	return r.db.Update(func(txn *badger.Txn) error {
		for _, rec := range recipients {
			doc := clientDocument{ID: rec.ID, Name: rec.Name, Icon: rec.Icon, Messages: rec.Queue()}
			bytes, err := json.Marshal(doc)
			if err != nil {
				return err
			}
			if err := txn.Set([]byte(clientPrefix+rec.ID), bytes); err != nil {
				return err
			}
		}
		return nil
	})
}
