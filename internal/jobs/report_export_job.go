package job

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	"github.com/maheshrc27/socialsync/internal/repository"
	"github.com/maheshrc27/socialsync/internal/service"
)

// ReportExportJob renders per-account engagement CSVs and uploads them to
// object storage. It shares nothing with the sync data path except the cron
// trigger mechanism.
type ReportExportJob struct {
	accounts repository.AccountRepository
	reports  *service.ReportService
}

func NewReportExportJob(accounts repository.AccountRepository, reports *service.ReportService) *ReportExportJob {
	return &ReportExportJob{
		accounts: accounts,
		reports:  reports,
	}
}

func (j *ReportExportJob) ExportDailyReports() {
	ctx := context.Background()

	accounts, err := j.accounts.ListDue(ctx)
	if err != nil {
		slog.Info(err.Error())
		return
	}

	for _, acc := range accounts {
		key, err := j.reports.ExportAccountEngagement(ctx, acc)
		if err != nil {
			slog.Info(fmt.Sprintf("report export failed for account %d: %v", acc.ID, err))
			continue
		}
		log.Printf("exported engagement report for account %d to %s", acc.ID, key)
	}
}
