package cosim

// Signal names a line of the hardware model.
type Signal string

// The lines the driver uses. The names follow the ports of the generated
// kernel.
const (
	Clock Signal = "ap_clk"

	AWAddr  Signal = "s_axi_control_AWADDR"
	AWValid Signal = "s_axi_control_AWVALID"
	AWReady Signal = "s_axi_control_AWREADY"
	WData   Signal = "s_axi_control_WDATA"
	WStrb   Signal = "s_axi_control_WSTRB"
	WValid  Signal = "s_axi_control_WVALID"
	WReady  Signal = "s_axi_control_WREADY"
	BResp   Signal = "s_axi_control_BRESP"
	BValid  Signal = "s_axi_control_BVALID"
	BReady  Signal = "s_axi_control_BREADY"
	ARAddr  Signal = "s_axi_control_ARADDR"
	ARValid Signal = "s_axi_control_ARVALID"
	ARReady Signal = "s_axi_control_ARREADY"
	RData   Signal = "s_axi_control_RDATA"
	RResp   Signal = "s_axi_control_RRESP"
	RValid  Signal = "s_axi_control_RVALID"
	RReady  Signal = "s_axi_control_RREADY"
)

// Response codes on BRESP and RRESP.
const (
	RespOkay   uint64 = 0
	RespExOkay uint64 = 1
	RespSlvErr uint64 = 2
	RespDecErr uint64 = 3
)

// A Model is a cycle-stepped hardware model. The driver treats it as opaque:
// it only drives and samples named lines and asks the model to settle.
type Model interface {
	// Eval settles the model for the values currently on its inputs. A rising
	// edge on the clock line is observed by the Eval that follows it.
	Eval()

	// Poke drives an input line.
	Poke(s Signal, value uint64)

	// Peek samples a line.
	Peek(s Signal) uint64

	// Signals lists the lines to include in waveform snapshots.
	Signals() []Signal
}
