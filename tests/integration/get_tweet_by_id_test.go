package integration

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kitayama-ai/x-quote-rt-bot/pkg/interfaces/twitter"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
)

const (
	testTweetID = "1851403414191689969"
)

func init() {
	if err := godotenv.Load("../../.env"); err != nil {
		log.Printf("Warning: Error loading .env file: %v", err)
	}
}

var _ = Describe("GetTweetMetrics", func() {
	var (
		client *twitter.TwitterClient
		logger *logrus.Logger
		ctx    context.Context
		cancel context.CancelFunc
	)

	BeforeEach(func() {
		if os.Getenv("INTEGRATION_TESTS") != "true" {
			Skip("Skipping integration test")
		}

		logger = logrus.New()
		logger.SetLevel(logrus.DebugLevel)

		config, err := twitter.NewTwitterConfig("1", os.Getenv("TWITTER_TEST_ENV_PREFIX"), logger)
		Expect(err).NotTo(HaveOccurred())

		client, err = twitter.NewTwitterClient(config)
		Expect(err).NotTo(HaveOccurred())

		ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
	})

	AfterEach(func() {
		cancel()
	})

	Context("when fetching engagement counters for a posted tweet", func() {
		It("should successfully fetch metrics for tweet "+testTweetID, func() {
			metrics, err := client.GetTweetMetrics(ctx, testTweetID)
			Expect(err).NotTo(HaveOccurred())
			Expect(metrics).NotTo(BeNil())
			Expect(metrics.ID).To(Equal(testTweetID))

			logger.WithFields(logrus.Fields{
				"tweet_id": metrics.ID,
				"likes":    metrics.Likes,
				"retweets": metrics.Retweets,
				"quotes":   metrics.Quotes,
			}).Info("tweet metrics")
		})
	})
})
