// Package worker runs prompt nodes from a Redis Streams work queue.
//
// The worker reads WorkRequest messages through a consumer group, loads the
// execution state, runs the node through a runner.Runner and publishes a
// ResultEvent to the result stream. Failures go to "<result stream>.errors".
// Every message is acknowledged once handled, successful or not.
//
//	store := worker.NewRedisStateStore(redisClient, logger)
//	publisher := worker.NewStreamPublisher(redisClient, cfg.ResultMaxLen, logger)
//	w := worker.NewWorker(cfg, redisClient, promptRunner, publisher, store, logger)
//	if err := w.Start(); err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Stop(5 * time.Second)
//
// Health checks are served separately on /health and /ready:
//
//	healthServer := worker.NewHealthServer(8082, redisClient, logger)
//	healthServer.Start()
//	defer healthServer.Stop()
package worker
