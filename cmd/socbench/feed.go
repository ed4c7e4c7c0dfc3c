package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"

	"github.com/rodaine/table"
	"github.com/spf13/cobra"
	"go.sia.tech/socbench/internal/feed"
	"go.sia.tech/socbench/internal/soc"
	"go.uber.org/zap"
)

var (
	feedOwner string
	feedFile  string

	feedCmd = &cobra.Command{
		Use:   "feed",
		Short: "write and read sequential feeds",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Usage()
		},
	}

	feedIDCmd = &cobra.Command{
		Use:   "id <topic> <index>",
		Short: "print the identifier of a feed update",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			topic := parseTopic(args[0])
			index, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				logger.Fatal("failed to parse index", zap.Error(err))
			}
			fmt.Println("Topic:     ", topic)
			fmt.Println("Identifier:", feed.Identifier(topic, index))
		},
	}

	feedUpdateCmd = &cobra.Command{
		Use:   "update <topic> [payload]",
		Short: "write the next update to a session feed",
		Args:  cobra.RangeArgs(1, 2),
		Run: func(cmd *cobra.Command, args []string) {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			topic := parseTopic(args[0])
			payload := mustReadPayload(cmd, args[1:], feedFile)
			level := mustParseLevel()
			c := mustNewClient()
			s := mustLoadStore()

			last, _ := s.FeedIndex(topic)
			index := last + 1
			if index == 0 {
				logger.Fatal("feed is exhausted", zap.Stringer("topic", topic))
			}
			e, err := feed.Update(s.Signer(), topic, index, payload, cfg.Format)
			if err != nil {
				logger.Fatal("failed to construct update", zap.Error(err))
			}
			if err := c.UploadSOC(ctx, e, level); err != nil {
				logger.Fatal("failed to upload update", zap.Error(err))
			}
			if err := s.SetFeedIndex(topic, index); err != nil {
				logger.Fatal("failed to save feed index", zap.Error(err))
			}
			fmt.Println("Owner:     ", e.Owner)
			fmt.Println("Topic:     ", topic)
			fmt.Println("Index:     ", index)
			fmt.Println("Identifier:", e.ID)
		},
	}

	feedLookupCmd = &cobra.Command{
		Use:   "lookup <topic>",
		Short: "find the latest update by probing consecutive indices",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			topic := parseTopic(args[0])
			owner := mustFeedOwner()
			index, data, err := feed.Lookup(ctx, mustNewClient(), owner, topic, 1)
			if err != nil {
				logger.Fatal("failed to look up feed", zap.Error(err))
			}
			fmt.Println("Index:  ", index)
			fmt.Println("Payload:", string(data))
		},
	}

	feedGetCmd = &cobra.Command{
		Use:   "get <topic>",
		Short: "download the latest update as resolved by the node",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			topic := parseTopic(args[0])
			data, err := mustNewClient().DownloadFeed(ctx, mustFeedOwner(), topic, mustParseLevel())
			if err != nil {
				logger.Fatal("failed to download feed", zap.Error(err))
			}
			os.Stdout.Write(data)
			fmt.Println()
		},
	}

	feedListCmd = &cobra.Command{
		Use:   "list",
		Short: "list the feeds written with the session key",
		Run: func(cmd *cobra.Command, args []string) {
			s := mustLoadStore()
			tbl := table.New("Topic", "Latest Index")
			for _, f := range s.Feeds() {
				tbl.AddRow(f.Topic, f.Index)
			}
			tbl.Print()
		},
	}
)

// parseTopic accepts a hex topic or a name that is hashed into one.
func parseTopic(s string) feed.Topic {
	var topic feed.Topic
	if len(s) == 2*feed.TopicSize || len(s) == 2*feed.TopicSize+2 {
		if err := topic.UnmarshalText([]byte(s)); err == nil {
			return topic
		}
	}
	return feed.NewTopic(s)
}

func mustFeedOwner() soc.Owner {
	if feedOwner == "" {
		return mustLoadStore().Signer().Owner()
	}
	var owner soc.Owner
	if err := owner.UnmarshalText([]byte(feedOwner)); err != nil {
		logger.Fatal("failed to parse owner", zap.Error(err))
	}
	return owner
}

func init() {
	feedUpdateCmd.Flags().StringVarP(&feedFile, "file", "f", "", "read the payload from a file")
	for _, c := range []*cobra.Command{feedLookupCmd, feedGetCmd} {
		c.Flags().StringVar(&feedOwner, "owner", "", "feed owner (defaults to the session owner)")
	}
}
