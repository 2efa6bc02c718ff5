package main

import (
	"context"
	"log"
	"net/http"

	"senha-engine/config"
	"senha-engine/internal/database"
	"senha-engine/internal/directory"
	"senha-engine/internal/estimator"
	"senha-engine/internal/fanout"
	"senha-engine/internal/handler"
	"senha-engine/internal/ledger"
	"senha-engine/internal/notify"
	"senha-engine/internal/schedule"
	"senha-engine/internal/service"
	"senha-engine/internal/sweep"
	"senha-engine/pkg/logger"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.LoadConfig()

	pool, err := database.InitDatabase(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer pool.Close()

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to initialize redis: %v", err)
	}
	defer rdb.Close()

	defer logger.Sync()

	dir := directory.NewPostgres(pool)
	evaluator := schedule.NewEvaluator(dir)
	ticketLedger := ledger.New(dir, evaluator)

	hub := fanout.NewHub()
	publisher := fanout.Multi{hub, fanout.NewRedisPublisher(rdb)}

	// The prediction and clustering models are external collaborators; until
	// their endpoints are configured the fallback serves stored averages.
	est := estimator.NewWithFallback(nil, func(ctx context.Context, queueID int64) (float64, error) {
		queue, err := dir.GetQueue(ctx, queueID)
		if err != nil {
			return 0, err
		}
		return queue.AvgServiceMin, nil
	})

	gateway := notify.NewLogGateway()
	throttle := notify.NewRedisThrottle(rdb)
	locations := notify.NewLocations()

	engine := notify.NewEngine(dir, ticketLedger, evaluator, est, gateway, throttle, publisher, locations, cfg.Engine)

	tickets := service.NewTicketService(ticketLedger, nil, est, publisher)
	calls := service.NewCallService(ticketLedger, publisher, gateway, cfg.Engine.CallTimeout)
	trades := service.NewTradeService(ticketLedger, publisher, gateway)
	presence := service.NewPresenceService(ticketLedger, dir, evaluator, publisher, cfg.Engine.ProximityRadiusKm)

	runner, err := sweep.NewRunner(engine, cfg.Engine.SweepInterval)
	if err != nil {
		log.Fatalf("Failed to initialize sweep runner: %v", err)
	}
	runner.Start()
	defer runner.Stop()

	router := gin.Default()
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	handler.NewTicketHandler(tickets, trades, presence).RegisterRoutes(router)
	handler.NewQueueHandler(tickets, calls).RegisterRoutes(router)
	handler.NewSweepHandler(engine).RegisterRoutes(router)
	handler.NewWSHandler(hub).RegisterRoutes(router)

	if err := router.Run(); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}
