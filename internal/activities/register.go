package activities

import "go.temporal.io/sdk/worker"

func Register(w worker.Worker, a *Activities) {
	w.RegisterActivity(a.StartRunActivity)
	w.RegisterActivity(a.CollectActivity)
	w.RegisterActivity(a.DedupeActivity)
	w.RegisterActivity(a.EnrichActivity)
	w.RegisterActivity(a.PersistActivity)
	w.RegisterActivity(a.CompleteRunActivity)
}
