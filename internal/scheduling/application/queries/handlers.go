package queries

import sharedApplication "github.com/felixgeelhaar/autoplan/internal/shared/application"

var (
	_ sharedApplication.QueryHandler[GetScheduleQuery, *ScheduleDTO]           = (*GetScheduleHandler)(nil)
	_ sharedApplication.QueryHandler[UpcomingOccurrencesQuery, []OccurrenceDTO] = (*UpcomingOccurrencesHandler)(nil)
	_ sharedApplication.QueryHandler[MissedReportQuery, *MissedReportDTO]       = (*MissedReportHandler)(nil)
)
