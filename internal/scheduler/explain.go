package scheduler

import (
	"fmt"
	"strings"
)

// Explain renders a human-readable snapshot of the scheduler's resource
// state, in the same string-builder style as the teacher's
// FederatedExecutor.Explain.
func (s *Scheduler) Explain() string {
	var sb strings.Builder
	sb.WriteString("== Scheduler State ==\n\n")

	cpu, gpu, mem := s.admission.InFlight()
	sb.WriteString(fmt.Sprintf("In-flight resources: cpu=%.2f gpu=%.2f mem=%dB\n", cpu, gpu, mem))
	sb.WriteString(fmt.Sprintf("Capacity:            cpu=%.2f gpu=%.2f mem=%dB\n", s.admission.capCPU, s.admission.capGPU, s.admission.capMem))
	sb.WriteString(fmt.Sprintf("Partition cache:     %d entries\n", s.cache.Size()))

	if summary := s.ectx.Logger.Summary(); summary != nil {
		sb.WriteString(fmt.Sprintf("\nRun summary: %d waves, %d tasks done, %d tasks failed\n", summary.Waves, summary.TasksDone, summary.TasksFailed))
		sb.WriteString(fmt.Sprintf("Rows produced: %d, bytes produced: %d\n", summary.TotalRows, summary.TotalBytes))
	}

	return sb.String()
}
