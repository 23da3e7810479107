package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

// Dumps every recipient document of a hotline Badger directory as a table.
// Read-only; safe to point at a live database copy.
func main() {
	dbPath := flag.String("db", "/config/db", "Path to badger DB")
	flag.Parse()

	db, err := badger.Open(badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithLoggingLevel(badger.ERROR))
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	type clientDocument struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Icon     string `json:"icon"`
		Messages []struct {
			Voice struct {
				MessageID int   `json:"message_id"`
				SentAt    int64 `json:"sent_at"`
			} `json:"voice"`
			GroupMessage bool `json:"group_message"`
		} `json:"messages"`
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Name", "Queued", "Group", "Oldest"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	total := 0
	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte("client:")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			err := item.Value(func(v []byte) error {
				var doc clientDocument
				if err := json.Unmarshal(v, &doc); err != nil {
					// Log and keep going instead of aborting the whole dump
					fmt.Printf("Error unmarshaling key %s: %v\n", item.Key(), err)
					return nil
				}

				groups := 0
				oldest := "-"
				for _, m := range doc.Messages {
					if m.GroupMessage {
						groups++
					}
				}
				if len(doc.Messages) > 0 {
					oldest = time.Unix(doc.Messages[0].Voice.SentAt, 0).UTC().Format(time.RFC3339)
				}

				total += len(doc.Messages)
				table.Append([]string{
					doc.ID,
					fmt.Sprintf("%s %s", doc.Icon, doc.Name),
					fmt.Sprintf("%d", len(doc.Messages)),
					fmt.Sprintf("%d", groups),
					oldest,
				})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal("Error while scanning: ", err)
	}

	color.Bold.Printf("Hotline queues (%d message(s) pending)\n\n", total)
	table.Render()
}
