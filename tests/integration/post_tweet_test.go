package integration

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kitayama-ai/x-quote-rt-bot/pkg/interfaces/twitter"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
)

func init() {
	if err := godotenv.Load("../../.env"); err != nil {
		log.Printf("Warning: Error loading .env file: %v", err)
	}
}

var _ = Describe("PostTweet", func() {
	var client *twitter.TwitterClient

	BeforeEach(func() {
		if os.Getenv("INTEGRATION_TESTS") != "true" {
			Skip("Skipping integration test")
		}

		logger := logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetLevel(logrus.DebugLevel)

		config, err := twitter.NewTwitterConfig("1", os.Getenv("TWITTER_TEST_ENV_PREFIX"), logger)
		Expect(err).NotTo(HaveOccurred())

		client, err = twitter.NewTwitterClient(config)
		Expect(err).NotTo(HaveOccurred())
	})

	Context("PostTweet", func() {
		It("should successfully post a tweet", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			tweetText := fmt.Sprintf("Test tweet %s", time.Now().Format(time.RFC3339))
			tweet, err := client.PostTweet(ctx, tweetText, nil)

			Expect(err).NotTo(HaveOccurred())
			Expect(tweet).NotTo(BeNil())
			Expect(tweet.Text).To(Equal(tweetText))
			Expect(tweet.ID).NotTo(BeEmpty())
		})

		It("should handle context cancellation", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			tweet, err := client.PostTweet(ctx, "Test tweet", nil)
			Expect(err).To(HaveOccurred())
			Expect(tweet).To(BeNil())
		})

		It("should handle context timeout", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 1*time.Nanosecond)
			defer cancel()
			time.Sleep(time.Millisecond)
			tweet, err := client.PostTweet(ctx, "Test tweet", nil)
			Expect(err).To(HaveOccurred())
			Expect(tweet).To(BeNil())
		})
	})

	Context("PostReply", func() {
		var parentTweetID string

		BeforeEach(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			var err error
			var tweet *twitter.Tweet
			for attempts := 0; attempts < 3; attempts++ {
				tweet, err = client.PostTweet(ctx, "Parent tweet for testing replies", nil)
				if err == nil && tweet != nil {
					parentTweetID = tweet.ID
					break
				}
				time.Sleep(time.Second * 2)
			}
			Expect(err).NotTo(HaveOccurred(), "Failed to create parent tweet after retries")
			Expect(tweet).NotTo(BeNil(), "Tweet response should not be nil")
			Expect(parentTweetID).NotTo(BeEmpty(), "Parent tweet ID should not be empty")
		})

		It("should successfully post a reply", func() {
			if parentTweetID == "" {
				Skip("Parent tweet creation failed")
			}

			replyText := fmt.Sprintf("Test reply %s", time.Now().Format(time.RFC3339))
			replyOptions := &twitter.TweetOptions{
				ReplyTo: parentTweetID,
			}
			tweet, err := client.PostTweet(context.Background(), replyText, replyOptions)
			Expect(err).NotTo(HaveOccurred())
			Expect(tweet).NotTo(BeNil())
			Expect(tweet.Text).To(Equal(replyText))
		})
	})

	Context("PostQuote", func() {
		var tweetToQuoteID string

		BeforeEach(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			var err error
			var tweet *twitter.Tweet
			for attempts := 0; attempts < 3; attempts++ {
				tweet, err = client.PostTweet(ctx, "Tweet to be quoted", nil)
				if err == nil && tweet != nil {
					tweetToQuoteID = tweet.ID
					break
				}
				time.Sleep(time.Second * 2)
			}
			Expect(err).NotTo(HaveOccurred(), "Failed to create tweet to quote after retries")
			Expect(tweet).NotTo(BeNil(), "Tweet response should not be nil")
			Expect(tweetToQuoteID).NotTo(BeEmpty(), "Tweet to quote ID should not be empty")
		})

		It("should successfully post a quote tweet", func() {
			if tweetToQuoteID == "" {
				Skip("Tweet to quote creation failed")
			}

			quoteText := fmt.Sprintf("Test quote %s", time.Now().Format(time.RFC3339))
			tweet, err := client.PostQuote(context.Background(), quoteText, tweetToQuoteID)
			Expect(err).NotTo(HaveOccurred())
			Expect(tweet).NotTo(BeNil())
			Expect(tweet.Text).To(HavePrefix(quoteText))
		})

		It("should fall back to a text+URL embed when the source tweet cannot be quoted", func() {
			if tweetToQuoteID == "" {
				Skip("Tweet to quote creation failed")
			}

			quoteText := fmt.Sprintf("Test quote fallback %s", time.Now().Format(time.RFC3339))
			quoteURL := fmt.Sprintf("https://x.com/i/status/%s", tweetToQuoteID)
			tweet, fellBack, err := twitter.PostQuoteWithFallback(context.Background(), client, quoteText, tweetToQuoteID, quoteURL)
			Expect(err).NotTo(HaveOccurred())
			Expect(tweet).NotTo(BeNil())
			if fellBack {
				Expect(tweet.Text).To(ContainSubstring(quoteURL))
			}
		})
	})
})
