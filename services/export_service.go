package services

import (
	"context"
	"strconv"

	"bookkeeping/models"

	"github.com/beevik/etree"
	"gorm.io/gorm"
)

// ExportService выгружает журнал основного счета в XML
type ExportService struct {
	db *gorm.DB
}

func NewExportService(db *gorm.DB) *ExportService {
	return &ExportService{db: db}
}

// ExportXML строит документ <transactions> в порядке дат по возрастанию.
// rng == nil означает выгрузку за все время.
func (s *ExportService) ExportXML(ctx context.Context, userID uint, rng *DateRange) ([]byte, error) {
	db := s.db.WithContext(ctx)
	account, err := primaryAccount(db, userID, false)
	if err != nil {
		return nil, err
	}

	query := db.Preload("Category").Where("account_id = ?", account.ID)
	if rng != nil {
		query = query.Where("transaction_date BETWEEN ? AND ?", rng.Start, rng.End)
	}
	var records []models.Transaction
	if err := query.Order("transaction_date").Order("id").Find(&records).Error; err != nil {
		return nil, err
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("transactions")
	root.CreateAttr("account", account.AccountNumber)
	root.CreateAttr("balance", formatMoney(account.AccountBalance))
	if rng != nil {
		root.CreateAttr("start", rng.Start.Format(DateLayout))
		root.CreateAttr("end", rng.End.Format(DateLayout))
	}

	for _, t := range records {
		el := root.CreateElement("transaction")
		el.CreateAttr("id", strconv.FormatUint(uint64(t.ID), 10))
		el.CreateElement("date").SetText(t.TransactionDate.Format(DateLayout))
		el.CreateElement("type").SetText(t.TransactionType.String())
		el.CreateElement("category").SetText(t.Category.DisplayName())
		el.CreateElement("sum").SetText(formatMoney(t.TransactionSum))
		el.CreateElement("comment").SetText(t.TransactionComment)
	}

	doc.Indent(2)
	return doc.WriteToBytes()
}
