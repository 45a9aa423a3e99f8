package app

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

func (a *Application) initJob() {
	loc, err := time.LoadLocation(a.appConfig.System.Location)
	if err != nil {
		loc = time.Local
	}
	a.sched = cron.New(cron.WithLocation(loc), cron.WithParser(cronParser))

	if expr := a.appConfig.Broadcast.RefreshCron; expr != "" {
		_, err = a.sched.AddFunc(expr, a.SchedTopologyRefreshTask)
		if err != nil {
			zap.S().Errorf("init job error %s", err.Error())
		}
	}

	a.sched.Start()
}

// SchedTopologyRefreshTask pushes live bandwidth to open dashboards.
// Nothing is queried while no one is subscribed.
func (a *Application) SchedTopologyRefreshTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()
	a.hub.NotifyInventoryChanged(context.Background())
}
