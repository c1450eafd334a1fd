// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package notify

import "time"

// SetWorkerClock replaces the worker clock in tests.
func SetWorkerClock(worker *Worker, now func() time.Time) {
	worker.now = now
}
