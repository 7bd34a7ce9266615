package cms

import (
	"time"

	"github.com/printshop-os/opsboard/internal/domain"
)

// DemoJobs returns a small fixture dataset for running the dashboard without
// a CMS. Nothing calls this implicitly: the poller seeds it only when demo
// mode is switched on in config, the first fetch fails, and no snapshot
// exists yet. Due dates are laid out relative to now so every priority band
// and a couple of kanban columns are populated.
func DemoJobs(now time.Time) []domain.Job {
	mk := func(id, customer, assignedTo string, status domain.Status, qty, minutes int, due time.Duration) domain.Job {
		return domain.Job{
			ID:               id,
			Customer:         customer,
			AssignedTo:       assignedTo,
			Status:           status,
			Quantity:         qty,
			EstimatedMinutes: minutes,
			DueDate:          now.Add(due),
			CreatedAt:        now.Add(-72 * time.Hour),
			UpdatedAt:        now.Add(-2 * time.Hour),
		}
	}

	return []domain.Job{
		mk("demo-1001", "Riverside Brewing Co", "dana", domain.StatusPrinting, 144, 90, 10*time.Hour),
		mk("demo-1002", "Lakeview Little League", "marcus", domain.StatusPrepress, 60, 45, 30*time.Hour),
		mk("demo-1003", "Summit HVAC", "", domain.StatusDesign, 24, 30, 4*24*time.Hour),
		mk("demo-1004", "Cedar Grove Farmers Market", "dana", domain.StatusQuote, 200, 120, 9*24*time.Hour),
		mk("demo-1005", "Harbor Yoga Studio", "priya", domain.StatusFinishing, 36, 40, 20*time.Hour),
		mk("demo-1006", "Westside Auto Detail", "", domain.StatusDelivery, 50, 0, 6*time.Hour),
		mk("demo-1007", "Pine Street Bakery", "marcus", domain.StatusCompleted, 75, 60, -24*time.Hour),
		mk("demo-1008", "Old Mill Run 5K", "priya", domain.StatusPrinting, 320, 150, 26*time.Hour),
	}
}

// DemoInvoices returns fixture invoices matching the demo jobs' customers.
func DemoInvoices(now time.Time) []domain.Invoice {
	paidAt := now.Add(-6 * 24 * time.Hour)

	return []domain.Invoice{
		{
			ID: "demo-inv-501", Number: "INV-0501", Customer: "Pine Street Bakery",
			TotalAmount: 612.50, AmountPaid: 612.50, Status: domain.InvoicePaid,
			IssuedAt: now.Add(-10 * 24 * time.Hour), DueDate: now.Add(-3 * 24 * time.Hour),
			PaidAt:    &paidAt,
			CreatedAt: now.Add(-10 * 24 * time.Hour), UpdatedAt: paidAt,
		},
		{
			ID: "demo-inv-502", Number: "INV-0502", Customer: "Riverside Brewing Co",
			TotalAmount: 1286.00, Status: domain.InvoicePending,
			IssuedAt: now.Add(-2 * 24 * time.Hour), DueDate: now.Add(12 * 24 * time.Hour),
			CreatedAt: now.Add(-2 * 24 * time.Hour), UpdatedAt: now.Add(-2 * 24 * time.Hour),
		},
		{
			ID: "demo-inv-503", Number: "INV-0503", Customer: "Summit HVAC",
			TotalAmount: 348.75, Status: domain.InvoiceOverdue,
			IssuedAt: now.Add(-40 * 24 * time.Hour), DueDate: now.Add(-10 * 24 * time.Hour),
			CreatedAt: now.Add(-40 * 24 * time.Hour), UpdatedAt: now.Add(-10 * 24 * time.Hour),
		},
	}
}

// DemoSOPs returns fixture procedure documents.
func DemoSOPs(now time.Time) []domain.SOP {
	mk := func(id, title, category, content string) domain.SOP {
		return domain.SOP{
			ID: id, Title: title, Category: category, Content: content, Version: 1,
			CreatedAt: now.Add(-30 * 24 * time.Hour), UpdatedAt: now.Add(-7 * 24 * time.Hour),
		}
	}

	return []domain.SOP{
		mk("demo-sop-1", "Screen Reclaim Process", "production",
			"Strip emulsion with reclaimer, pressure wash both sides, degrease, dry flat before recoating."),
		mk("demo-sop-2", "Garment Care Instructions", "care",
			"Wash inside-out in cold water. Tumble dry low or hang dry. Do not iron directly on prints."),
		mk("demo-sop-3", "Color Matching Guidelines", "technical",
			"Use Pantone matching for critical colors. Monitor colors vary from printed results; pull a swatch first."),
	}
}

// DemoProducts returns fixture catalog items.
func DemoProducts(now time.Time) []domain.Product {
	mk := func(id, sku, name, brand, category, supplier string, price float64) domain.Product {
		return domain.Product{
			ID: id, SKU: sku, Name: name, Brand: brand, Category: category,
			Supplier: supplier, UnitPrice: price,
			CreatedAt: now.Add(-60 * 24 * time.Hour), UpdatedAt: now.Add(-14 * 24 * time.Hour),
		}
	}

	return []domain.Product{
		mk("demo-prod-1", "PC54", "Core Cotton Tee", "Port & Company", "t-shirts", "sanmar", 3.42),
		mk("demo-prod-2", "5000", "Heavy Cotton Tee", "Gildan", "t-shirts", "ssactivewear", 2.97),
		mk("demo-prod-3", "PC78H", "Core Fleece Pullover Hoodie", "Port & Company", "sweatshirts", "sanmar", 11.18),
		mk("demo-prod-4", "CP90", "Knit Cap", "Port & Company", "headwear", "sanmar", 2.64),
	}
}
