package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"roapctl/internal/config"
	"roapctl/internal/device"
	"roapctl/internal/logger"
	"roapctl/internal/roap"
)

var (
	tvHost       string
	tvPort       int
	tvPairingKey string
	tvDevice     string
	tvTimeout    time.Duration
	tvDebug      bool

	inputType  int
	inputIndex int

	channelMajor       int
	channelMinor       int
	channelSourceIndex int
	channelPhysicalNum int

	appAUID       string
	appName       string
	appContentID  string
	appContentAge int

	appListType   int
	appListIndex  int
	appListNumber int

	dataRaw            bool
	dataPreserveArrays bool
)

var tvCmd = &cobra.Command{
	Use:   "tv",
	Short: "Control a TV over ROAP",
	Long: `Send ROAP commands and queries to a single TV.
The TV is either given with --host or looked up by --device in the config file.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		rootCmd.PersistentPreRun(cmd, args)
		if tvDebug {
			logger.SetSilentMode(false)
			logger.SetLevel(logger.LOG_DEBUG)
		}
	},
}

var tvPairCmd = &cobra.Command{
	Use:       "pair [request|cancel|confirm] [key]",
	Short:     "Pair with the TV",
	Long:      `request shows the pairing key on the TV, cancel hides it and confirm authenticates with it.`,
	Args:      cobra.RangeArgs(1, 2),
	ValidArgs: []string{"request", "cancel", "confirm"},
	RunE: func(cmd *cobra.Command, args []string) error {
		request := device.ActionRequest{Type: device.ActionTypeControl}
		switch args[0] {
		case "request":
			request.Action = string(device.ControlActionPairRequest)
		case "cancel":
			request.Action = string(device.ControlActionPairCancel)
		case "confirm":
			request.Action = string(device.ControlActionPair)
			if len(args) == 2 {
				request.Parameters = map[string]interface{}{"key": args[1]}
			}
		default:
			return fmt.Errorf("unknown pair step: %s", args[0])
		}
		return runAction(cmd, request)
	},
}

var tvKeyCmd = &cobra.Command{
	Use:   "key [name]...",
	Short: "Send remote control keys",
	Long: `Send one or more remote control keys in order, e.g. "roapctl tv key volume_up volume_up".
Run "roapctl tv list keys" for the key names.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range args {
			if err := runAction(cmd, device.ActionRequest{Type: device.ActionTypeRemote, Action: name}); err != nil {
				return err
			}
		}
		return nil
	},
}

var tvInputCmd = &cobra.Command{
	Use:   "input [source]",
	Short: "Change the input source",
	Long:  `Change the input source by name (e.g. HDMI_1) or by --type and --index.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params := map[string]interface{}{}
		switch {
		case len(args) == 1:
			params["source"] = args[0]
		case cmd.Flags().Changed("type") && cmd.Flags().Changed("index"):
			params["type"] = inputType
			params["index"] = inputIndex
		default:
			return errors.New("a source name or both --type and --index are required")
		}
		return runAction(cmd, controlRequest(device.ControlActionChangeInput, params))
	},
}

var tvAVModeCmd = &cobra.Command{
	Use:   "avmode [source] [value]",
	Short: "Set an AV mode, e.g. avmode 3d on",
	Long:  `Set an AV mode. true and false are sent as on and off, any other value as is.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var value interface{} = args[1]
		switch strings.ToLower(args[1]) {
		case "true":
			value = true
		case "false":
			value = false
		}
		return runAction(cmd, controlRequest(device.ControlActionAVMode, map[string]interface{}{
			"source": args[0],
			"value":  value,
		}))
	},
}

var tvChannelCmd = &cobra.Command{
	Use:   "channel",
	Short: "Change the broadcast channel",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, controlRequest(device.ControlActionChannelChange, map[string]interface{}{
			"major":        channelMajor,
			"minor":        channelMinor,
			"source_index": channelSourceIndex,
			"physical_num": channelPhysicalNum,
		}))
	},
}

var tvAppCmd = &cobra.Command{
	Use:   "app",
	Short: "Launch an application",
	Long:  `Launch an application by --auid or --name, optionally opening --content-id.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, controlRequest(device.ControlActionAppExecute, map[string]interface{}{
			"auid":        appAUID,
			"name":        appName,
			"content_id":  appContentID,
			"content_age": appContentAge,
		}))
	},
}

var tvAppListCmd = &cobra.Command{
	Use:   "applist",
	Short: "List installed applications",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, controlRequest(device.ControlActionAppList, map[string]interface{}{
			"type":   appListType,
			"index":  appListIndex,
			"number": appListNumber,
		}))
	},
}

var tvAppNumCmd = &cobra.Command{
	Use:   "appnum",
	Short: "Count installed applications",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, controlRequest(device.ControlActionAppCount, map[string]interface{}{
			"type": appListType,
		}))
	},
}

var tvDataCmd = &cobra.Command{
	Use:   "data [target] [key=value]...",
	Short: "Run a data query",
	Long: `Query the data endpoint for any target, passing extra parameters in order.
With --raw the response body is printed as received.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var params roap.Params
		for _, arg := range args[1:] {
			key, value, ok := strings.Cut(arg, "=")
			if !ok || key == "" {
				return fmt.Errorf("invalid parameter %q, expected key=value", arg)
			}
			params = params.With(key, value)
		}

		var opts []roap.Option
		if dataPreserveArrays {
			opts = append(opts, roap.WithDecoder(roap.Decoder{PreserveArrays: true}))
		}
		remote, err := newTVRemote(opts...)
		if err != nil {
			return err
		}
		data := remote.Client().Data

		if dataRaw {
			raw, err := data.Raw(cmd.Context(), args[0], params).Await(cmd.Context())
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(raw.Body)
			return err
		}

		doc, err := data.Query(cmd.Context(), args[0], params).Await(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), doc)
	},
}

var tvListCmd = &cobra.Command{
	Use:       "list [keys|targets|actions]",
	Short:     "List key names, data targets or control actions",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"keys", "targets", "actions"},
	RunE: func(cmd *cobra.Command, args []string) error {
		var names []string
		switch args[0] {
		case "keys":
			names = roap.KeyNames()
		case "targets":
			names = dataTargets
		case "actions":
			for _, a := range controlActions {
				names = append(names, string(a))
			}
		default:
			return fmt.Errorf("unknown list type: %s (use keys, targets or actions)", args[0])
		}

		out := cmd.OutOrStdout()
		for _, name := range names {
			fmt.Fprintln(out, name)
		}
		return nil
	},
}

var dataTargets = []string{
	roap.TargetInputSourceList,
	roap.TargetChannelList,
	roap.TargetCurrentInputSource,
	roap.TargetCaps,
	roap.TargetAppList,
	roap.TargetAppCount,
}

var controlActions = []device.ControlAction{
	device.ControlActionPairRequest,
	device.ControlActionPairCancel,
	device.ControlActionPair,
	device.ControlActionChangeInput,
	device.ControlActionAVMode,
	device.ControlActionChannelChange,
	device.ControlActionAppExecute,
	device.ControlActionInputList,
	device.ControlActionChannelList,
	device.ControlActionCurrentInput,
	device.ControlActionCaps,
	device.ControlActionAppList,
	device.ControlActionAppCount,
}

// Data queries without parameters get their own subcommand.
var dataQueryCmds = []struct {
	use    string
	short  string
	action device.ControlAction
}{
	{"inputs", "List input sources", device.ControlActionInputList},
	{"channels", "List channels", device.ControlActionChannelList},
	{"current", "Show the current input source", device.ControlActionCurrentInput},
	{"caps", "Show TV capabilities", device.ControlActionCaps},
}

func init() {
	flags := tvCmd.PersistentFlags()
	flags.StringVarP(&tvHost, "host", "H", "", "TV host name or IP address")
	flags.IntVarP(&tvPort, "port", "p", 0, fmt.Sprintf("TV ROAP port (default %d)", roap.DefaultPort))
	flags.StringVarP(&tvPairingKey, "pairing-key", "k", "", "pairing key shown on the TV")
	flags.StringVarP(&tvDevice, "device", "D", "", "use a device from the config file")
	flags.DurationVar(&tvTimeout, "timeout", 0, "request timeout (default 30s)")
	flags.BoolVarP(&tvDebug, "debug", "d", false, "log ROAP requests and responses")

	tvInputCmd.Flags().IntVar(&inputType, "type", 0, "input source type")
	tvInputCmd.Flags().IntVar(&inputIndex, "index", 0, "input source index")

	tvChannelCmd.Flags().IntVar(&channelMajor, "major", 0, "major channel number")
	tvChannelCmd.Flags().IntVar(&channelMinor, "minor", 0, "minor channel number")
	tvChannelCmd.Flags().IntVar(&channelSourceIndex, "source-index", 0, "source index")
	tvChannelCmd.Flags().IntVar(&channelPhysicalNum, "physical-num", 0, "physical channel number")

	tvAppCmd.Flags().StringVar(&appAUID, "auid", "", "application unique id")
	tvAppCmd.Flags().StringVar(&appName, "name", "", "application name")
	tvAppCmd.Flags().StringVar(&appContentID, "content-id", "", "content to open")
	tvAppCmd.Flags().IntVar(&appContentAge, "content-age", 0, "content age rating")

	for _, c := range []*cobra.Command{tvAppListCmd, tvAppNumCmd} {
		c.Flags().IntVar(&appListType, "type", 1, "application list type")
	}
	tvAppListCmd.Flags().IntVar(&appListIndex, "index", roap.DefaultAppListIndex, "first entry")
	tvAppListCmd.Flags().IntVar(&appListNumber, "number", roap.DefaultAppListNumber, "number of entries")

	tvDataCmd.Flags().BoolVar(&dataRaw, "raw", false, "print the undecoded response")
	tvDataCmd.Flags().BoolVar(&dataPreserveArrays, "preserve-arrays", false, "keep repeated elements as lists")

	tvCmd.AddCommand(tvPairCmd, tvKeyCmd, tvInputCmd, tvAVModeCmd, tvChannelCmd, tvAppCmd,
		tvAppListCmd, tvAppNumCmd, tvDataCmd, tvListCmd)

	for _, q := range dataQueryCmds {
		action := q.action
		tvCmd.AddCommand(&cobra.Command{
			Use:   q.use,
			Short: q.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runAction(cmd, controlRequest(action, nil))
			},
		})
	}
}

func controlRequest(action device.ControlAction, params map[string]interface{}) device.ActionRequest {
	return device.ActionRequest{
		Type:       device.ActionTypeControl,
		Action:     string(action),
		Parameters: params,
	}
}

// tvDeviceConfig resolves the target TV from --device and the connection flags.
// Flags override the saved entry.
func tvDeviceConfig() (config.DeviceConfig, error) {
	d := config.DeviceConfig{ID: "tv"}
	if tvDevice != "" {
		saved, err := configManager().GetDevice(tvDevice)
		if err != nil {
			return d, err
		}
		d = *saved
	}

	if tvHost != "" {
		d.Host = tvHost
	}
	if tvPort != 0 {
		d.Port = tvPort
	}
	if tvPairingKey != "" {
		d.PairingKey = tvPairingKey
	}
	if tvTimeout > 0 {
		d.Timeout = tvTimeout.String()
	}

	if d.Host == "" {
		return d, errors.New("either --host or --device is required")
	}
	return d, d.Validate()
}

func newTVRemote(opts ...roap.Option) (*roap.Remote, error) {
	d, err := tvDeviceConfig()
	if err != nil {
		return nil, err
	}
	client, err := d.NewClient(opts...)
	if err != nil {
		return nil, err
	}
	return roap.NewRemote(d.ID, client), nil
}

// runAction sends request through the device layer and prints the response.
func runAction(cmd *cobra.Command, request device.ActionRequest) error {
	remote, err := newTVRemote()
	if err != nil {
		return err
	}

	actionJSON, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("failed to encode action: %w", err)
	}

	log := logger.New()
	log.Info().
		Str("device", remote.GetDeviceInfo().ID).
		Str("type", string(request.Type)).
		Str("action", request.Action).
		Msg("Sending action")

	response, err := remote.Process(cmd.Context(), actionJSON)
	if err != nil {
		return err
	}
	if err := printJSON(cmd.OutOrStdout(), response); err != nil {
		return err
	}
	if !response.Success {
		log.Error().Str("action", request.Action).Msg(response.Error)
		return errors.New(response.Error)
	}
	return nil
}

func printJSON(w io.Writer, v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
