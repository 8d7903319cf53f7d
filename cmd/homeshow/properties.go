package main

import (
	"encoding/json"
	"fmt"
	"os"
)

func runPropertiesList() error {
	_, store, _, err := loadEnvironment()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := signalContext()
	defer cancel()

	records, err := store.ListProperties(ctx)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No properties in the store.")
		return nil
	}
	for _, r := range records {
		title := "(untitled)"
		if r.Title != nil {
			title = *r.Title
		}
		price := "-"
		if r.Price != nil {
			price = fmt.Sprintf("%.0f", *r.Price)
		}
		fmt.Printf("%-36s %-32s %10s  %d media\n", r.ID, title, price, len(r.Media))
	}
	return nil
}

func runPropertiesShow() error {
	_, store, _, err := loadEnvironment()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := signalContext()
	defer cancel()

	record, err := store.GetProperty(ctx, CLI.Properties.Show.ID)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(record)
}
