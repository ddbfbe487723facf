// Package monitoring 统计预测服务的运行指标
package monitoring

import (
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
)

// Outcome 一次预测请求的结果分类
type Outcome string

const (
	OutcomeHighRisk Outcome = "high_risk"
	OutcomeLowRisk  Outcome = "low_risk"
	OutcomeRejected Outcome = "rejected"
	OutcomeFailed   Outcome = "failed"
)

// Channel 请求来源
type Channel string

const (
	ChannelForm      Channel = "form"
	ChannelAPI       Channel = "api"
	ChannelWebSocket Channel = "websocket"
)

// LatencyStat 延迟统计
type LatencyStat struct {
	Count   int64         `json:"count"`
	Min     time.Duration `json:"min"`
	Max     time.Duration `json:"max"`
	Average time.Duration `json:"average"`
	total   time.Duration
}

// PredictionMetrics 预测指标。只记录计数和耗时，不保存任何患者数据。
type PredictionMetrics struct {
	metricsLock sync.RWMutex

	counts    map[Channel]map[Outcome]int64
	latency   LatencyStat
	startTime time.Time
}

// NewPredictionMetrics 创建预测指标
func NewPredictionMetrics() *PredictionMetrics {
	return &PredictionMetrics{
		counts:    make(map[Channel]map[Outcome]int64),
		startTime: time.Now(),
	}
}

// RecordPrediction 记录一次预测
func (pm *PredictionMetrics) RecordPrediction(channel Channel, outcome Outcome, elapsed time.Duration) {
	pm.metricsLock.Lock()
	defer pm.metricsLock.Unlock()

	if _, ok := pm.counts[channel]; !ok {
		pm.counts[channel] = make(map[Outcome]int64)
	}
	pm.counts[channel][outcome]++

	if outcome == OutcomeHighRisk || outcome == OutcomeLowRisk {
		l := &pm.latency
		if l.Count == 0 || elapsed < l.Min {
			l.Min = elapsed
		}
		if elapsed > l.Max {
			l.Max = elapsed
		}
		l.Count++
		l.total += elapsed
		l.Average = l.total / time.Duration(l.Count)
	}
}

// Count 返回某来源某结果的计数；channel为空时汇总所有来源
func (pm *PredictionMetrics) Count(channel Channel, outcome Outcome) int64 {
	pm.metricsLock.RLock()
	defer pm.metricsLock.RUnlock()

	if channel != "" {
		return pm.counts[channel][outcome]
	}
	var total int64
	for _, byOutcome := range pm.counts {
		total += byOutcome[outcome]
	}
	return total
}

// Latency 返回成功预测的延迟统计
func (pm *PredictionMetrics) Latency() LatencyStat {
	pm.metricsLock.RLock()
	defer pm.metricsLock.RUnlock()
	return pm.latency
}

// GetUptime 获取运行时间
func (pm *PredictionMetrics) GetUptime() time.Duration {
	return time.Since(pm.startTime)
}

// GetStats 获取统计摘要
func (pm *PredictionMetrics) GetStats() map[string]interface{} {
	pm.metricsLock.RLock()
	defer pm.metricsLock.RUnlock()

	byChannel := make(map[string]map[string]int64, len(pm.counts))
	totals := make(map[string]int64)
	for channel, byOutcome := range pm.counts {
		m := make(map[string]int64, len(byOutcome))
		for outcome, n := range byOutcome {
			m[string(outcome)] = n
			totals[string(outcome)] += n
		}
		byChannel[string(channel)] = m
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return map[string]interface{}{
		"uptime":      time.Since(pm.startTime).Round(time.Second).String(),
		"predictions": totals,
		"by_channel":  byChannel,
		"latency_ms": map[string]float64{
			"min":     milliseconds(pm.latency.Min),
			"max":     milliseconds(pm.latency.Max),
			"average": milliseconds(pm.latency.Average),
		},
		"goroutines": runtime.NumGoroutine(),
		"heap_alloc": mem.HeapAlloc,
	}
}

// ExportPrometheus 导出Prometheus文本格式
func (pm *PredictionMetrics) ExportPrometheus() string {
	pm.metricsLock.RLock()
	defer pm.metricsLock.RUnlock()

	var b strings.Builder
	b.WriteString("# HELP diabetes_predictions_total Predictions served, by channel and outcome.\n")
	b.WriteString("# TYPE diabetes_predictions_total counter\n")

	channels := make([]string, 0, len(pm.counts))
	for channel := range pm.counts {
		channels = append(channels, string(channel))
	}
	sort.Strings(channels)
	for _, channel := range channels {
		byOutcome := pm.counts[Channel(channel)]
		outcomes := make([]string, 0, len(byOutcome))
		for outcome := range byOutcome {
			outcomes = append(outcomes, string(outcome))
		}
		sort.Strings(outcomes)
		for _, outcome := range outcomes {
			fmt.Fprintf(&b, "diabetes_predictions_total{channel=%q,outcome=%q} %d\n",
				channel, outcome, byOutcome[Outcome(outcome)])
		}
	}

	b.WriteString("# HELP diabetes_prediction_latency_seconds Latency of successful predictions.\n")
	b.WriteString("# TYPE diabetes_prediction_latency_seconds summary\n")
	fmt.Fprintf(&b, "diabetes_prediction_latency_seconds_sum %f\n", pm.latency.total.Seconds())
	fmt.Fprintf(&b, "diabetes_prediction_latency_seconds_count %d\n", pm.latency.Count)

	b.WriteString("# HELP process_uptime_seconds Seconds since the service started.\n")
	b.WriteString("# TYPE process_uptime_seconds gauge\n")
	fmt.Fprintf(&b, "process_uptime_seconds %f\n", time.Since(pm.startTime).Seconds())
	return b.String()
}

func milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
