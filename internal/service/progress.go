package service

import (
	"context"

	"github.com/sirupsen/logrus"
)

// progressEvery 每处理多少条记录写一次进度
const progressEvery = 50

// progressReporter 将聚合进度写入Redis
type progressReporter struct {
	ctx       context.Context
	store     *ProgressStore
	sessionID string
	logger    *logrus.Entry
}

func newProgressReporter(ctx context.Context, store *ProgressStore, sessionID string, logger *logrus.Entry) *progressReporter {
	return &progressReporter{ctx: ctx, store: store, sessionID: sessionID, logger: logger}
}

func (r *progressReporter) Progress(split string, done, total int) {
	if done%progressEvery != 0 && done != total-1 {
		return
	}
	r.set(&ProgressState{Split: split, Done: done + 1, Total: total})
}

// SplitDone 划分结束时进度归零
func (r *progressReporter) SplitDone(split string) {
	r.logger.WithField("split", split).Debug("划分统计完成")
	r.set(&ProgressState{Split: split})
}

func (r *progressReporter) set(state *ProgressState) {
	if r.store == nil {
		return
	}
	if err := r.store.Set(r.ctx, r.sessionID, state); err != nil {
		r.logger.WithError(err).Debug("写入进度失败")
	}
}
