package modules

import (
	"fmt"
	"image"

	"github.com/okieraised/go-faceauth-pipeline/config"
	"github.com/okieraised/go-faceauth-pipeline/utils"
	gotritonclient "github.com/okieraised/go-triton-client"
	"github.com/okieraised/go-triton-client/triton_proto"
	"gocv.io/x/gocv"
	"gorgonia.org/tensor"
)

// FaceIDClient extracts face embeddings from the inference server. The
// similarity scorer uses it as the deep verification backend.
type FaceIDClient struct {
	tritonClient *gotritonclient.TritonGRPCClient
	ModelParams  *config.FaceIDParams
	ModelConfig  *triton_proto.ModelConfigResponse
}

func NewFaceIDClient(triton *gotritonclient.TritonGRPCClient, cfg *config.FaceIDParams) (*FaceIDClient, error) {

	inferenceConfig, err := triton.GetModelConfiguration(cfg.Timeout, cfg.ModelName, "")
	if err != nil {
		return nil, err
	}

	return &FaceIDClient{
		tritonClient: triton,
		ModelParams:  cfg,
		ModelConfig:  inferenceConfig,
	}, nil
}

func (c *FaceIDClient) preprocess(input gocv.Mat) (*tensor.Dense, error) {
	resizedImg := gocv.NewMat()
	defer resizedImg.Close()
	gocv.Resize(
		input,
		&resizedImg,
		image.Point{
			X: c.ModelParams.ImgSize,
			Y: c.ModelParams.ImgSize,
		},
		0.0,
		0.0,
		gocv.InterpolationLinear,
	)

	imgTensors := tensor.New(
		tensor.Of(tensor.Float32),
		tensor.WithShape(
			int(c.ModelConfig.Config.Input[0].Dims[1]),
			int(c.ModelConfig.Config.Input[0].Dims[2]),
			int(c.ModelConfig.Config.Input[0].Dims[0]),
		),
	)

	for z := range int(c.ModelConfig.Config.Input[0].Dims[0]) {
		for y := range int(c.ModelConfig.Config.Input[0].Dims[1]) {
			for x := range int(c.ModelConfig.Config.Input[0].Dims[2]) {
				err := imgTensors.SetAt((float32(resizedImg.GetVecbAt(y, x)[z])-float32(c.ModelParams.Mean))*float32(c.ModelParams.Scale), y, x, z)
				if err != nil {
					return nil, err
				}
			}
		}
	}
	err := imgTensors.T(2, 0, 1)
	if err != nil {
		return nil, err
	}
	newShape := []int{1}
	newShape = append(newShape, imgTensors.Shape()...)
	err = imgTensors.Reshape(newShape...)
	if err != nil {
		return nil, err
	}

	return imgTensors, nil
}

func (c *FaceIDClient) infer(inputTensors *tensor.Dense) (*tensor.Dense, error) {
	modelRequest := &triton_proto.ModelInferRequest{
		ModelName: c.ModelParams.ModelName,
	}

	modelInputs := make([]*triton_proto.ModelInferRequest_InferInputTensor, 0)
	for _, inputCfg := range c.ModelConfig.Config.Input {
		modelInput := &triton_proto.ModelInferRequest_InferInputTensor{
			Name:     inputCfg.Name,
			Datatype: inputCfg.DataType.String()[5:],
			Shape:    []int64{1, inputCfg.Dims[0], inputCfg.Dims[1], inputCfg.Dims[2]},
			Contents: &triton_proto.InferTensorContents{
				Fp32Contents: inputTensors.Float32s(),
			},
		}
		modelInputs = append(modelInputs, modelInput)
	}

	modelRequest.Inputs = modelInputs
	inferResp, err := c.tritonClient.ModelGRPCInfer(c.ModelParams.Timeout, modelRequest)
	if err != nil {
		return nil, err
	}

	outputs := inferResp.GetOutputs()
	if len(outputs) == 0 || len(inferResp.RawOutputContents) == 0 {
		return nil, fmt.Errorf("inference response contains no outputs")
	}

	outputShape := make([]int, 0, len(outputs[0].Shape))
	for _, shp := range outputs[0].Shape {
		outputShape = append(outputShape, int(shp))
	}
	content := utils.BytesToT32[float32](inferResp.RawOutputContents[0])
	embedding := tensor.New(
		tensor.Of(tensor.Float32),
		tensor.WithShape(outputShape...),
		tensor.WithBacking(content),
	)

	return embedding, nil
}

/*
InferSingle extracts the embedding of one face crop.

Inputs:

  - img (gocv.Mat): RGB face crop.

Outputs:

  - embedding (*tensor.Dense): face embedding vector.
*/
func (c *FaceIDClient) InferSingle(img gocv.Mat) (*tensor.Dense, error) {
	inputTensors, err := c.preprocess(img)
	if err != nil {
		return nil, err
	}

	return c.infer(inputTensors)
}

/*
InferPair extracts the embeddings of two face crops in submission order.

Inputs:

  - imgA (gocv.Mat): first RGB face crop.
  - imgB (gocv.Mat): second RGB face crop.

Outputs:

  - embeddingA (*tensor.Dense): embedding of the first crop.
  - embeddingB (*tensor.Dense): embedding of the second crop.
*/
func (c *FaceIDClient) InferPair(imgA, imgB gocv.Mat) (*tensor.Dense, *tensor.Dense, error) {
	embeddings, err := c.InferBatch([][]gocv.Mat{{imgA, imgB}})
	if err != nil {
		return nil, nil, err
	}
	if len(embeddings) != 2 {
		return nil, nil, fmt.Errorf("expected 2 embeddings, got %d", len(embeddings))
	}

	return embeddings[0], embeddings[1], nil
}

/*
InferBatch extracts face embeddings from batches of face crops.

Inputs:

  - rawInputTensors ([][]gocv.Mat): batches of RGB face crops.

Outputs:

  - embeddings ([]*tensor.Dense): one embedding per input crop.
*/
func (c *FaceIDClient) InferBatch(rawInputTensors [][]gocv.Mat) ([]*tensor.Dense, error) {
	embeddings := make([]*tensor.Dense, 0)

	for _, batch := range rawInputTensors {
		for _, input := range batch {
			inputTensors, err := c.preprocess(input)
			if err != nil {
				return nil, err
			}
			embedding, err := c.infer(inputTensors)
			if err != nil {
				return nil, err
			}
			embeddings = append(embeddings, embedding)
		}
	}

	return embeddings, nil
}
