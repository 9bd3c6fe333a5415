package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/mistwave/filemesh/internal/events"
	"github.com/mistwave/filemesh/internal/signaling"
)

var (
	flagMQTTBroker     string
	flagMQTTPort       uint16
	flagMQTTTopic      string
	flagMQTTLocalName  string
	flagMQTTRemoteName string
	flagMQTTSecret     string
	flagMQTTKeepAlive  int
)

var mqttCmd = &cobra.Command{
	Use:   "mqtt",
	Short: "Exchange offer/answer over an MQTT broker",
	RunE: func(cmd *cobra.Command, args []string) error {
		secret, err := secretFromFlag(flagMQTTSecret)
		if err != nil {
			return err
		}
		transport := signaling.NewMQTT(
			flagMQTTBroker, flagMQTTPort, flagMQTTTopic,
			flagMQTTLocalName, flagMQTTRemoteName,
			time.Duration(flagMQTTKeepAlive)*time.Second,
			secret,
		)
		return runClient(events.NewBus(), transport, true, nil)
	},
}

func init() {
	clientCmd.AddCommand(mqttCmd)
	mqttCmd.Flags().StringVarP(&flagMQTTBroker, "broker", "b", "127.0.0.1", "MQTT broker host")
	mqttCmd.Flags().Uint16VarP(&flagMQTTPort, "port", "p", 1883, "MQTT broker port")
	mqttCmd.Flags().StringVarP(&flagMQTTTopic, "topic", "t", "filemesh", "shared topic suffix")
	mqttCmd.Flags().StringVarP(&flagMQTTLocalName, "local-name", "n", "", "this peer's topic prefix")
	mqttCmd.Flags().StringVarP(&flagMQTTRemoteName, "remote-name", "r", "", "the peer's topic prefix")
	mqttCmd.Flags().StringVarP(&flagMQTTSecret, "secret", "s", "", "32-byte symmetric key wrapping signaling payloads")
	mqttCmd.Flags().IntVarP(&flagMQTTKeepAlive, "keep-alive", "k", 30, "MQTT keep-alive interval, seconds")
	mqttCmd.MarkFlagRequired("local-name")
	mqttCmd.MarkFlagRequired("remote-name")
}
