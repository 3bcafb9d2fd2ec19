package storage

import (
	"encoding/json"
	"fmt"

	"hisab/internal/core"
)

// SchemaVersion is the current on-disk envelope version. Decoding refuses
// unknown versions so a newer writer never gets silently misread; the
// ledger treats that the same as corruption and falls back to seed data.
const SchemaVersion = 1

type membersDocument struct {
	Version int           `json:"version"`
	Members []core.Member `json:"members"`
}

type expensesDocument struct {
	Version  int            `json:"version"`
	Expenses []core.Expense `json:"expenses"`
}

type settingsDocument struct {
	Version  int           `json:"version"`
	Settings core.Settings `json:"settings"`
}

func EncodeMembers(members []core.Member) ([]byte, error) {
	return json.Marshal(membersDocument{Version: SchemaVersion, Members: members})
}

func DecodeMembers(payload []byte) ([]core.Member, error) {
	var doc membersDocument
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("decode members document: %w", err)
	}
	if doc.Version != SchemaVersion {
		return nil, fmt.Errorf("unsupported members document version %d", doc.Version)
	}
	return doc.Members, nil
}

func EncodeExpenses(expenses []core.Expense) ([]byte, error) {
	return json.Marshal(expensesDocument{Version: SchemaVersion, Expenses: expenses})
}

func DecodeExpenses(payload []byte) ([]core.Expense, error) {
	var doc expensesDocument
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("decode expenses document: %w", err)
	}
	if doc.Version != SchemaVersion {
		return nil, fmt.Errorf("unsupported expenses document version %d", doc.Version)
	}
	return doc.Expenses, nil
}

func EncodeSettings(settings core.Settings) ([]byte, error) {
	return json.Marshal(settingsDocument{Version: SchemaVersion, Settings: settings})
}

func DecodeSettings(payload []byte) (core.Settings, error) {
	var doc settingsDocument
	if err := json.Unmarshal(payload, &doc); err != nil {
		return core.Settings{}, fmt.Errorf("decode settings document: %w", err)
	}
	if doc.Version != SchemaVersion {
		return core.Settings{}, fmt.Errorf("unsupported settings document version %d", doc.Version)
	}
	return doc.Settings, nil
}
