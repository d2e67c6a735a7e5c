package main

import (
	"collab_service/internal/config"
	"collab_service/internal/database/mongo"
	"collab_service/internal/events"
	"collab_service/internal/handlers"
	"collab_service/internal/models"
	"collab_service/internal/repository"
	"collab_service/internal/service"
	"collab_service/pkg/discovery"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
)

func setupLogging() (*os.File, error) {
	logDir := filepath.Join("/evolvia", "log", "collab_service")
	err := os.MkdirAll(logDir, 0755)
	if err != nil {
		return nil, fmt.Errorf("failed to create log directory: %v", err)
	}

	currentTime := time.Now()
	logFileName := fmt.Sprintf("log_%s.log", currentTime.Format("2006-01-02"))
	logFile := filepath.Join(logDir, logFileName)

	file, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %v", err)
	}

	log.SetOutput(file)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	return file, nil
}

func main() {
	logFile, err := setupLogging()
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logFile.Close()

	// A hole in the role/action matrix would silently deny; refuse to boot.
	if err := models.ValidateMatrix(); err != nil {
		log.Fatalf("Permission matrix is incomplete: %v", err)
	}

	cfg := config.ServiceConfig

	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	})

	app.Get("/health", func(c fiber.Ctx) error {
		return c.Status(fiber.StatusOK).SendString("Collab Service is healthy")
	})

	repos := repository.Repositories_instance

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := repos.GrantRepository.CreateIndexes(ctx); err != nil {
		log.Printf("Warning: Failed to create grant indexes: %v", err)
	}
	if err := repos.AuditRepository.CreateIndexes(ctx); err != nil {
		log.Printf("Warning: Failed to create audit indexes: %v", err)
	}
	if err := repos.TeamRepository.CreateIndexes(ctx); err != nil {
		log.Printf("Warning: Failed to create team indexes: %v", err)
	}
	cancel()

	eventPublisher, err := events.NewEventPublisher(cfg.RabbitMQ.URI)
	if err != nil {
		log.Printf("Warning: Failed to initialize event publisher: %v", err)
		// Fall back to a disabled publisher so grant writes keep working.
		eventPublisher, _ = events.NewEventPublisher("")
	}

	jwtService := service.NewJWTService(cfg.JWT.Secret)
	grantService := service.NewGrantService(repos.GrantRepository, repos.AuditRepository, eventPublisher)
	permissionService := service.NewPermissionService(
		repos.GrantRepository,
		repos.TeamRepository,
		repos.ProjectRepository,
		repos.TaskRepository,
		repos.DecisionCache,
	)
	gate := service.NewAccessGate(permissionService, nil)
	teamService := service.NewTeamService(repos.TeamRepository)
	projectService := service.NewProjectService(repos.ProjectRepository)
	taskService := service.NewTaskService(repos.TaskRepository, grantService)

	eventConsumer, err := events.NewEventConsumer(cfg.RabbitMQ.URI, cfg.RabbitMQ.QueueName, repos.DecisionCache)
	if err != nil {
		log.Printf("Warning: Failed to initialize event consumer: %v", err)
	} else {
		if err := eventConsumer.Start(); err != nil {
			log.Printf("Warning: Failed to start event consumer: %v", err)
			eventConsumer.Close()
		} else {
			log.Println("Successfully started grant event consumer")
			defer eventConsumer.Close()
		}
	}

	app.Use("/protected", handlers.Identity(jwtService))

	grantHandler := handlers.NewGrantHandler(grantService, repos.AuditRepository, gate)
	grantHandler.RegisterRoutes(app)
	permissionHandler := handlers.NewPermissionHandler(permissionService, gate, cfg.Permission.CheckTimeout)
	permissionHandler.RegisterRoutes(app)
	teamHandler := handlers.NewTeamHandler(teamService, gate)
	teamHandler.RegisterRoutes(app)
	projectHandler := handlers.NewProjectHandler(projectService, gate)
	projectHandler.RegisterRoutes(app)
	taskHandler := handlers.NewTaskHandler(taskService, gate)
	taskHandler.RegisterRoutes(app)

	sweepStop := make(chan struct{})
	go runExpirySweeper(grantService, cfg.Permission.SweepInterval, sweepStop)

	if discovery.ServiceDiscovery != nil {
		if err := discovery.ServiceDiscovery.Register(); err != nil {
			log.Printf("Warning: Failed to register with service discovery: %v", err)
		}
	}

	shutdownChan := make(chan os.Signal, 1)
	doneChan := make(chan bool, 1)

	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := app.Listen(fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)); err != nil {
			log.Fatalf("Error starting server: %v", err)
		}
		doneChan <- true
	}()

	<-shutdownChan
	log.Println("Shutting down server...")

	close(sweepStop)

	ctx, cancel = context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("Error shutting down HTTP server: %v", err)
	}

	if eventPublisher != nil {
		if err := eventPublisher.Close(); err != nil {
			log.Printf("Error closing event publisher: %v", err)
		}
	}

	mongo.DisconnectMongo()

	if discovery.ServiceDiscovery != nil {
		if err := discovery.ServiceDiscovery.Deregister(); err != nil {
			log.Printf("Error deregistering from service discovery: %v", err)
		}
	}

	<-doneChan
	log.Println("Server exited, goodbye!")
}

// runExpirySweeper flips grants past their expiresAt to inactive so the
// stored state catches up with what the resolver already treats as expired.
func runExpirySweeper(grantService *service.GrantService, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			swept, err := grantService.SweepExpired(ctx)
			cancel()
			if err != nil {
				log.Printf("Expiration sweep failed: %v", err)
			} else if swept > 0 {
				log.Printf("Expiration sweep deactivated %d grants", swept)
			}
		case <-stop:
			return
		}
	}
}
