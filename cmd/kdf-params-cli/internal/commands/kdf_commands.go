package commands

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/MGTheTrain/crypto-vault-kdf/internal/app"
	"github.com/MGTheTrain/crypto-vault-kdf/internal/domain/kdf"
	"github.com/MGTheTrain/crypto-vault-kdf/internal/infrastructure/cryptography"
	"github.com/MGTheTrain/crypto-vault-kdf/internal/infrastructure/nativemem"
	"github.com/MGTheTrain/crypto-vault-kdf/internal/pkg/logger"
	"github.com/MGTheTrain/crypto-vault-kdf/internal/pkg/validators"
)

// Output formats of the layout and build commands
const (
	outputJSON = "json"
	outputYAML = "yaml"
)

// KdfCommandsHandler builds and inspects SP 800-108 counter-mode KDF parameter blocks
type KdfCommandsHandler struct {
	allocator  kdf.Allocator
	layout     kdf.Layout
	layoutName string
	logger     logger.Logger
}

// NewKdfCommandsHandler loads the CLI configuration and creates the allocator and layout it selects
func NewKdfCommandsHandler() (*KdfCommandsHandler, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	loggerInstance, err := setupLogger(&cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to setup logger: %w", err)
	}

	pointerSize := cfg.Kdf.PointerSize
	if pointerSize == 0 {
		pointerSize = kdf.NativePointerSize
	}
	layout, err := kdf.ParseLayout(cfg.Kdf.Layout, pointerSize)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve layout: %w", err)
	}

	allocator, err := nativemem.New(cfg.Kdf.Allocator)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s allocator: %w", cfg.Kdf.Allocator, err)
	}

	return &KdfCommandsHandler{
		allocator:  allocator,
		layout:     layout,
		layoutName: cfg.Kdf.Layout,
		logger:     loggerInstance,
	}, nil
}

type layoutOutput struct {
	Name            string           `json:"name" yaml:"name"`
	ULongSize       int              `json:"ulong_size" yaml:"ulong_size"`
	PointerSize     int              `json:"pointer_size" yaml:"pointer_size"`
	Packed          bool             `json:"packed" yaml:"packed"`
	Header          kdf.StructLayout `json:"header" yaml:"header"`
	Record          kdf.StructLayout `json:"record" yaml:"record"`
	CounterFormat   kdf.StructLayout `json:"counter_format" yaml:"counter_format"`
	DKMLengthFormat kdf.StructLayout `json:"dkm_length_format" yaml:"dkm_length_format"`
}

type recordOutput struct {
	Index    int    `json:"index" yaml:"index"`
	Type     uint64 `json:"type" yaml:"type"`
	TypeName string `json:"type_name" yaml:"type_name"`
	Value    string `json:"value" yaml:"value"`
	ValueLen uint64 `json:"value_len" yaml:"value_len"`
	Data     string `json:"data,omitempty" yaml:"data,omitempty"`
}

type buildOutput struct {
	ID                 uuid.UUID      `json:"id" yaml:"id"`
	Layout             string         `json:"layout" yaml:"layout"`
	PrfType            uint64         `json:"prf_type" yaml:"prf_type"`
	NumberOfDataParams uint64         `json:"number_of_data_params" yaml:"number_of_data_params"`
	DataParams         string         `json:"data_params" yaml:"data_params"`
	Encoded            string         `json:"encoded" yaml:"encoded"`
	Records            []recordOutput `json:"records" yaml:"records"`
}

// LayoutCmd prints the structure sizes and field offsets of the configured layout
func (h *KdfCommandsHandler) LayoutCmd(cmd *cobra.Command, _ []string) {
	out := layoutOutput{
		Name:            h.layoutName,
		ULongSize:       h.layout.ULongSize,
		PointerSize:     h.layout.PointerSize,
		Packed:          h.layout.Packed,
		Header:          h.layout.Header(),
		Record:          h.layout.Record(),
		CounterFormat:   h.layout.CounterFormat(),
		DKMLengthFormat: h.layout.DKMLengthFormat(),
	}

	h.print(cmd, out)
}

// BuildCmd builds a parameter block from the --prf and --segment flags, dumps the native records and releases it
func (h *KdfCommandsHandler) BuildCmd(cmd *cobra.Command, _ []string) {
	prfType, err := cmd.Flags().GetUint64("prf")
	if err != nil {
		h.logger.Error("invalid prf flag ", err)
		return
	}
	segments, err := cmd.Flags().GetStringArray("segment")
	if err != nil {
		h.logger.Error("invalid segment flag ", err)
		return
	}

	dataParams := make([]kdf.PrfDataParam, 0, len(segments))
	for _, segment := range segments {
		dataParam, err := parseSegment(segment)
		if err != nil {
			h.logger.Error(err)
			return
		}
		dataParams = append(dataParams, dataParam)
	}

	params, err := cryptography.NewSP800108KdfParams(h.allocator, h.layout, prfType, dataParams, h.logger)
	if err != nil {
		h.logger.Error("failed to build KDF params ", err)
		return
	}
	defer func() {
		if err := params.Release(); err != nil {
			h.logger.Error("failed to release KDF params ", err)
		}
	}()

	out, err := h.describe(params)
	if err != nil {
		h.logger.Error(err)
		return
	}

	h.print(cmd, out)
}

// CounterFormatCmd prints an encoded CK_SP800_108_COUNTER_FORMAT payload as hex
func (h *KdfCommandsHandler) CounterFormatCmd(cmd *cobra.Command, _ []string) {
	littleEndian, err := cmd.Flags().GetBool("little-endian")
	if err != nil {
		h.logger.Error("invalid little-endian flag ", err)
		return
	}
	width, err := cmd.Flags().GetUint64("width")
	if err != nil {
		h.logger.Error("invalid width flag ", err)
		return
	}

	h.printFormat(cmd, &app.FormatRequest{
		Kind:         validators.FormatKindCounter,
		LittleEndian: littleEndian,
		WidthInBits:  width,
	})
}

// DKMFormatCmd prints an encoded CK_SP800_108_DKM_LENGTH_FORMAT payload as hex
func (h *KdfCommandsHandler) DKMFormatCmd(cmd *cobra.Command, _ []string) {
	method, err := cmd.Flags().GetString("method")
	if err != nil {
		h.logger.Error("invalid method flag ", err)
		return
	}
	littleEndian, err := cmd.Flags().GetBool("little-endian")
	if err != nil {
		h.logger.Error("invalid little-endian flag ", err)
		return
	}
	width, err := cmd.Flags().GetUint64("width")
	if err != nil {
		h.logger.Error("invalid width flag ", err)
		return
	}

	h.printFormat(cmd, &app.FormatRequest{
		Kind:         validators.FormatKindDKM,
		Method:       method,
		LittleEndian: littleEndian,
		WidthInBits:  width,
	})
}

func (h *KdfCommandsHandler) printFormat(cmd *cobra.Command, req *app.FormatRequest) {
	param, err := app.EncodeFormat(h.layout, req)
	if err != nil {
		h.logger.Error("failed to encode format ", err)
		return
	}
	fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(param.Value))
}

func (h *KdfCommandsHandler) describe(params kdf.MechanismParams) (*buildOutput, error) {
	header, err := params.ToMarshalableStructure()
	if err != nil {
		return nil, err
	}
	encoded, err := params.MarshalBinary()
	if err != nil {
		return nil, err
	}
	records, err := params.Records()
	if err != nil {
		return nil, err
	}

	out := &buildOutput{
		ID:                 params.ID(),
		Layout:             h.layout.String(),
		PrfType:            header.PrfType,
		NumberOfDataParams: header.NumberOfDataParams,
		DataParams:         fmt.Sprintf("0x%x", header.DataParams),
		Encoded:            hex.EncodeToString(encoded),
		Records:            make([]recordOutput, 0, len(records)),
	}
	for i, rec := range records {
		ro := recordOutput{
			Index:    i,
			Type:     uint64(rec.Type),
			TypeName: rec.Type.String(),
			Value:    fmt.Sprintf("0x%x", rec.Value),
			ValueLen: rec.ValueLen,
		}
		if rec.Value != 0 {
			data, err := h.allocator.ReadAt(rec.Value, 0, int(rec.ValueLen))
			if err != nil {
				return nil, fmt.Errorf("failed to read value of record %d: %w", i, err)
			}
			ro.Data = hex.EncodeToString(data)
		}
		out.Records = append(out.Records, ro)
	}
	return out, nil
}

// print writes v in the format selected by the --output flag (json or yaml)
func (h *KdfCommandsHandler) print(cmd *cobra.Command, v interface{}) {
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		h.logger.Error("invalid output flag ", err)
		return
	}

	var data []byte
	switch output {
	case outputJSON:
		data, err = json.MarshalIndent(v, "", "  ")
	case outputYAML:
		data, err = yaml.Marshal(v)
	default:
		h.logger.Error("unsupported output format: ", output)
		return
	}
	if err != nil {
		h.logger.Error("failed to marshal output to ", output, " ", err)
		return
	}
	fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(string(data), "\n"))
}

// parseSegment parses "type[:hex]" where type is a catalog name or a numeric code
func parseSegment(s string) (kdf.PrfDataParam, error) {
	name, valueHex, _ := strings.Cut(s, ":")

	t, err := kdf.ParsePrfDataType(name)
	if err != nil {
		code, parseErr := strconv.ParseUint(strings.TrimSpace(name), 0, 32)
		if parseErr != nil {
			return kdf.PrfDataParam{}, fmt.Errorf("invalid segment '%s': %w", s, err)
		}
		t = kdf.PrfDataType(code)
	}

	var value []byte
	if valueHex != "" {
		value, err = hex.DecodeString(valueHex)
		if err != nil {
			return kdf.PrfDataParam{}, fmt.Errorf("invalid hex value in segment '%s': %w", s, err)
		}
	}

	return kdf.PrfDataParam{Type: t, Value: value}, nil
}

// InitKdfCommands registers KDF parameter commands
func InitKdfCommands(rootCmd *cobra.Command) error {
	handler, err := NewKdfCommandsHandler()
	if err != nil {
		return fmt.Errorf("failed to create KDF command handler %w", err)
	}

	registerKdfCommands(rootCmd, handler)
	return nil
}

func registerKdfCommands(rootCmd *cobra.Command, handler *KdfCommandsHandler) {
	var layoutCmd = &cobra.Command{
		Use:   "layout",
		Short: "Print structure sizes and field offsets of the configured native layout",
		Run:   handler.LayoutCmd,
	}
	layoutCmd.Flags().StringP("output", "o", outputJSON, "Output format (json or yaml)")
	rootCmd.AddCommand(layoutCmd)

	var buildCmd = &cobra.Command{
		Use:   "build",
		Short: "Build a SP 800-108 counter KDF parameter block and dump its native records",
		Run:   handler.BuildCmd,
	}
	buildCmd.Flags().Uint64P("prf", "", 0, "PRF mechanism type (e.g. 0x264)")
	buildCmd.Flags().StringArrayP("segment", "", nil, "PRF data segment as type[:hex], repeatable (e.g. prf-label:6c6162656c)")
	buildCmd.Flags().StringP("output", "o", outputJSON, "Output format (json or yaml)")
	rootCmd.AddCommand(buildCmd)

	var counterFormatCmd = &cobra.Command{
		Use:   "counter-format",
		Short: "Encode a counter format segment value",
		Run:   handler.CounterFormatCmd,
	}
	counterFormatCmd.Flags().BoolP("little-endian", "", false, "Encode the counter little endian")
	counterFormatCmd.Flags().Uint64P("width", "", 32, "Counter width in bits (8, 16, 24 or 32)")
	rootCmd.AddCommand(counterFormatCmd)

	var dkmFormatCmd = &cobra.Command{
		Use:   "dkm-format",
		Short: "Encode a DKM length format segment value",
		Run:   handler.DKMFormatCmd,
	}
	dkmFormatCmd.Flags().StringP("method", "", "sum-of-keys", "DKM length method (sum-of-keys or sum-of-segments)")
	dkmFormatCmd.Flags().BoolP("little-endian", "", false, "Encode the length little endian")
	dkmFormatCmd.Flags().Uint64P("width", "", 32, "Length width in bits (multiple of 8, at most 64)")
	rootCmd.AddCommand(dkmFormatCmd)
}
