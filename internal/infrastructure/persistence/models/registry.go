package models

// All returns every persistence model, in dependency order, for AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&ReceiptModel{},
		&PassportModel{},
		&UnrecognizedImageModel{},
		&ReferenceRowModel{},
		&MatchLogModel{},
		&ArchiveModel{},
		&MatchingHistoryModel{},
	}
}
