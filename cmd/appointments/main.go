package main

import (
	bookingsevents "github.com/Maghvendra09/appointment-booking/internal/bookings/events"
	bookingshandler "github.com/Maghvendra09/appointment-booking/internal/bookings/handler"
	bookingsrepository "github.com/Maghvendra09/appointment-booking/internal/bookings/repository"
	bookingsservice "github.com/Maghvendra09/appointment-booking/internal/bookings/service"
	bookingsvalidator "github.com/Maghvendra09/appointment-booking/internal/bookings/validator"
	slotshandler "github.com/Maghvendra09/appointment-booking/internal/slots/handler"
	slotsrepository "github.com/Maghvendra09/appointment-booking/internal/slots/repository"
	slotsservice "github.com/Maghvendra09/appointment-booking/internal/slots/service"
	slotsvalidator "github.com/Maghvendra09/appointment-booking/internal/slots/validator"
	"github.com/Maghvendra09/appointment-booking/pkg/app"
	"github.com/Maghvendra09/appointment-booking/pkg/config"
	mongotx "github.com/Maghvendra09/appointment-booking/pkg/db/mongo"
	"github.com/Maghvendra09/appointment-booking/pkg/kafka"
	kafkaconfig "github.com/Maghvendra09/appointment-booking/pkg/kafka/config"
	kafkamiddleware "github.com/Maghvendra09/appointment-booking/pkg/kafka/middleware"
)

const ServiceName = "appointments"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	cfg.SetRedis()

	cfg.Log.Info("Starting Appointments service")
	serverApp := app.NewApplication(cfg)

	publisher := initPublisher(cfg, serverApp)
	slotHandler, bookingHandler := initHandlers(cfg, publisher)

	serverApp.SetApp(slotHandler, bookingHandler)
	serverApp.Run()
}

func initHandlers(cfg *config.Config, publisher bookingsevents.Publisher) (*slotshandler.SlotHandler, *bookingshandler.BookingHandler) {
	txManager := mongotx.NewTransactionManager(cfg.Client.Mongo)
	slotRepo := slotsrepository.NewMongoSlotRepository(cfg)
	bookingRepo := bookingsrepository.NewMongoBookingRepository(cfg)

	slotService := slotsservice.NewSlotService(
		slotRepo,
		txManager,
		slotsvalidator.NewSlotValidator(cfg.Log),
		cfg,
	)
	bookingService := bookingsservice.NewBookingService(
		bookingRepo,
		slotRepo,
		bookingsvalidator.NewBookingValidator(cfg.Log),
		publisher,
		cfg,
	)

	cfg.Log.Info("Services initialized", "database", cfg.MongoDatabaseName)
	return slotshandler.NewSlotHandler(slotService, cfg.Log), bookingshandler.NewBookingHandler(bookingService, cfg.Log)
}

func initPublisher(cfg *config.Config, serverApp *app.Application) bookingsevents.Publisher {
	kafkaCfg, err := kafkaconfig.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	if !kafkaCfg.Enabled {
		cfg.Log.Info("Kafka disabled, booking events will not be published")
		return bookingsevents.NewNoopPublisher()
	}
	kafkaCfg.LogConfiguration(cfg.Log.Info)

	producer, err := kafka.NewProducer(kafkaCfg, cfg.BookingEventsTopic, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	producer.Use(kafkamiddleware.LoggingProducerMiddleware(cfg.Log))
	serverApp.OnShutdown(producer)

	cfg.Log.Info("Booking events enabled", "topic", producer.Topic())
	return bookingsevents.NewKafkaPublisher(producer)
}
