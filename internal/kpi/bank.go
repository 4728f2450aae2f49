package kpi

import (
	"sort"
	"strings"
	"time"

	"github.com/sells-group/underwriting-cli/internal/model"
	"github.com/sells-group/underwriting-cli/internal/parse"
)

const openingBalanceMarker = "previous balance"

type transaction struct {
	date        time.Time
	description string
	amount      float64
	kind        string
}

// impact is the signed balance change; rows with an unknown type move nothing.
func (t transaction) impact() float64 {
	switch t.kind {
	case "credit":
		return t.amount
	case "debit":
		return -t.amount
	}
	return 0
}

func monthKey(t time.Time) int { return t.Year()*12 + int(t.Month()) - 1 }

// BankStatement computes cash-flow KPIs from a statement's transaction table.
// Rows whose date cannot be parsed are dropped. A leading "previous balance" row
// with no type seeds the running balance from its own date and is excluded from
// every count.
func BankStatement(doc model.BankStatement) model.BankStatementKPIs {
	txns := make([]transaction, 0, len(doc.Transactions))
	for _, row := range doc.Transactions {
		d, ok := parse.Date(row.Date.String())
		if !ok {
			continue
		}
		txns = append(txns, transaction{
			date:        d,
			description: row.Description.String(),
			amount:      parse.Amount(row.Amount.String()),
			kind:        strings.ToLower(row.Type.String()),
		})
	}
	if len(txns) == 0 {
		return model.BankStatementKPIs{}
	}
	sort.SliceStable(txns, func(i, j int) bool { return txns[i].date.Before(txns[j].date) })

	var opening float64
	start := txns[0].date
	if strings.Contains(strings.ToLower(txns[0].description), openingBalanceMarker) && txns[0].kind == "" {
		opening = txns[0].amount
		txns = txns[1:]
	}
	if len(txns) == 0 {
		return model.BankStatementKPIs{AverageMonthlyBalance: parse.Round(opening, 2)}
	}

	type monthTotals struct {
		count  int
		debit  float64
		credit float64
	}
	byMonth := make(map[int]*monthTotals)
	var months []int
	byDay := make(map[time.Time]float64)
	for _, tx := range txns {
		k := monthKey(tx.date)
		m, ok := byMonth[k]
		if !ok {
			m = &monthTotals{}
			byMonth[k] = m
			months = append(months, k)
		}
		m.count++
		switch tx.kind {
		case "credit":
			m.credit += tx.amount
		case "debit":
			m.debit += tx.amount
		}
		byDay[tx.date] += tx.impact()
	}

	var sumCount, sumDebit, sumCredit float64
	for _, k := range months {
		sumCount += float64(byMonth[k].count)
		sumDebit += byMonth[k].debit
		sumCredit += byMonth[k].credit
	}
	n := float64(len(months))
	avgDebit, avgCredit := sumDebit/n, sumCredit/n

	out := model.BankStatementKPIs{
		AverageMonthlyTransactionCount: parse.Round(sumCount/n, 2),
		MonthlyAverageDebit:            parse.Round(avgDebit, 2),
		MonthlyAverageCredit:           parse.Round(avgCredit, 2),
		AverageMonthlyBalance:          parse.Round(averageMonthlyBalance(opening, start, txns[len(txns)-1].date, byDay), 2),
	}
	if avgCredit > 0 {
		r := parse.Round(avgDebit/avgCredit, 4)
		out.DebitCreditRatio = &r
	}
	return out
}

// averageMonthlyBalance replays a daily running balance from start to end
// inclusive, averages it within each calendar month, then averages the monthly
// means.
func averageMonthlyBalance(opening float64, start, end time.Time, byDay map[time.Time]float64) float64 {
	type acc struct {
		sum  float64
		days int
	}
	var order []int
	perMonth := make(map[int]*acc)
	bal := opening
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		bal += byDay[day]
		k := monthKey(day)
		a, ok := perMonth[k]
		if !ok {
			a = &acc{}
			perMonth[k] = a
			order = append(order, k)
		}
		a.sum += bal
		a.days++
	}
	if len(order) == 0 {
		return 0
	}
	var total float64
	for _, k := range order {
		total += perMonth[k].sum / float64(perMonth[k].days)
	}
	return total / float64(len(order))
}
