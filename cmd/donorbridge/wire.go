package main

import (
	"donorbridge/internal/approval"
	"donorbridge/internal/identity"
	"donorbridge/internal/notify"
	"donorbridge/internal/session"
	"donorbridge/internal/store"
	"donorbridge/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

type notifier interface {
	approval.Notifier
	Close() error
}

func newStores(pool *pgxpool.Pool) approval.Stores {
	return approval.Stores{
		Tx:           store.NewTxRunner(pool),
		Profiles:     store.NewProfileRepository(pool),
		Donors:       store.NewDonorRepository(pool),
		Schools:      store.NewSchoolRepository(pool),
		Donations:    store.NewDonationRepository(pool),
		Applications: store.NewApplicationRepository(pool),
		Matches:      store.NewMatchRepository(pool),
	}
}

// newNotifier publishes to Kafka when brokers are configured and logs
// notices otherwise.
func newNotifier(config *types.Config, logger *logrus.Logger) notifier {
	if len(config.KafkaBrokers) == 0 {
		logger.Warn("KAFKA_BROKERS not set, notifications will only be logged")
		return notify.NewLogNotifier(logger)
	}

	return notify.NewKafkaNotifier(config, logger)
}

func newCognito(awsConfig aws.Config, config *types.Config, logger *logrus.Logger) *identity.Cognito {
	return identity.NewCognito(cognitoidentityprovider.NewFromConfig(awsConfig), config, logger)
}

func newApprovalService(pool *pgxpool.Pool, registrar approval.IdentityRegistrar, notifier notifier, logger *logrus.Logger) *approval.Service {
	return approval.New(newStores(pool), session.Provider{}, registrar, notifier, logger)
}
